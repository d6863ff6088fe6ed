// Package kv is the key/value table backing the client binary cache.
package kv

import "context"

// Repository reads and writes raw values by key. Get returns (nil, nil) for a
// missing key. The *Many methods issue one statement per key against the
// repository's DBTX, so callers wrap them in a transaction when the keys must
// change together.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
