package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/binsync/internal/models"
)

// SyncRequest is one intent sent to the server. Content is required for
// upload actions and ignored otherwise.
type SyncRequest struct {
	Action   string
	Checksum string
	Record   *models.BinaryRecord
	Content  io.Reader
}

type Client interface {
	Sync(ctx context.Context, req SyncRequest) (*models.BinaryRecord, error)
	GetRecord(ctx context.Context, uid string) (*models.BinaryRecord, error)
	Download(ctx context.Context, uid string) (io.ReadCloser, string, error)
}

// Pinger reports whether the server is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Close() error
}
