package synclog

import (
	"context"
	"time"

	"github.com/dmitrijs2005/binsync/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, entry *models.SyncLogEntry) error
	Complete(ctx context.Context, uid string, status models.SyncStatus, errMsg string) error
	Get(ctx context.Context, uid string) (*models.SyncLogEntry, error)
	ListStale(ctx context.Context, before time.Time) ([]*models.SyncLogEntry, error)
}
