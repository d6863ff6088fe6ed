// Package blobstore keeps the canonical blob of every binary record.
// Per-attempt archive copies live on the filesystem. Canonical blobs are keyed
// by record uid and the attempt that produced them, so a committed record
// always points at the exact bytes it describes.
package blobstore

import (
	"context"
	"io"
)

type Store interface {
	// Put replaces the blob under key with size bytes read from r.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns the blob under key or common.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob under key. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// Key is the storage key of the canonical blob written by attempt syncUID
// for a record uid.
func Key(uid, syncUID string) string {
	return "records/" + uid + "/" + syncUID
}
