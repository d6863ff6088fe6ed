// Package filex holds the filesystem helpers used for canonical storage and
// for materializing cached blobs on the client.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureSubdDir creates dirName under the current working directory.
func EnsureSubdDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	dir := filepath.Join(cwd, dirName)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureDir creates dir and its parents if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// CopyFile streams src into dst, creating parent directories and replacing
// any existing dst. The source is left untouched. The destination is synced
// to disk before returning.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return n, fmt.Errorf("sync %s: %w", dst, err)
	}
	return n, out.Close()
}

// ErrSizeMismatch is returned by WriteAtomicSize when r does not hold
// exactly the expected number of bytes. path is left untouched.
var ErrSizeMismatch = errors.New("size mismatch")

// WriteAtomic writes r to a temp file beside path and renames it into place,
// so readers see either the old content or the complete new content.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	return WriteAtomicSize(path, r, -1)
}

// WriteAtomicSize is WriteAtomic with a length check before the rename.
// A negative size skips the check.
func WriteAtomicSize(path string, r io.Reader, size int64) (int64, error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return n, fmt.Errorf("write temp: %w", err)
	}
	if size >= 0 && n != size {
		_ = tmp.Close()
		return n, fmt.Errorf("%w: wrote %d bytes, expected %d", ErrSizeMismatch, n, size)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return n, fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}
