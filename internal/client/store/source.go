package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is the content handed to SaveBinary. Every kind is read into one
// buffer before anything is written.
type Source struct {
	data   []byte
	path   string
	reader io.Reader
}

func FromBytes(b []byte) Source { return Source{data: b} }

func FromFile(path string) Source { return Source{path: path} }

func FromReader(r io.Reader) Source { return Source{reader: r} }

// filename is the base name of a file source, or "".
func (s Source) filename() string {
	if s.path == "" {
		return ""
	}
	return filepath.Base(s.path)
}

func (s Source) buffer() ([]byte, error) {
	switch {
	case s.path != "":
		b, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		return b, nil
	case s.reader != nil:
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, s.reader); err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		return buf.Bytes(), nil
	case s.data != nil:
		return s.data, nil
	default:
		return []byte{}, nil
	}
}
