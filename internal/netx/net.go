// Package netx builds streaming HTTP request bodies for the sync client.
package netx

import (
	"io"
	"mime/multipart"
)

// Field is a plain form value sent ahead of the file part.
type Field struct {
	Name  string
	Value string
}

// File describes the single file part of a multipart body.
type File struct {
	Field    string
	Filename string
	Content  io.Reader
}

// MultipartBody streams fields followed by an optional file part through a
// pipe, so large payloads are never buffered in memory. The returned reader
// must be consumed or closed. Errors from reading file.Content surface as the
// reader's error.
func MultipartBody(fields []Field, file *File) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeParts(mw, fields, file)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeParts(mw *multipart.Writer, fields []Field, file *File) error {
	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return err
		}
	}

	if file == nil {
		return nil
	}

	name := file.Filename
	if name == "" {
		name = "blob"
	}
	part, err := mw.CreateFormFile(file.Field, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file.Content)
	return err
}
