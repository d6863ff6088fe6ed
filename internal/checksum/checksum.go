// Package checksum computes the content digests used to verify binaries on
// both sides of a sync. The digest is SHA-256 in lowercase hex; it depends on
// content only, never on names or metadata.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrChecksum wraps every failure to produce a digest.
var ErrChecksum = errors.New("checksum error")

// Bytes returns the digest of an in-memory buffer.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader hashes r incrementally until EOF. A read error yields ErrChecksum and
// no digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %w", ErrChecksum, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File streams the file at path through the hash.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChecksum, err)
	}
	defer f.Close()

	return Reader(f)
}

// Equal compares two hex digests, ignoring case and surrounding spaces.
func Equal(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
