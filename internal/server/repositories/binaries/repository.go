package binaries

import (
	"context"

	"github.com/dmitrijs2005/binsync/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, b *models.Binary) error
	GetByUID(ctx context.Context, uid string) (*models.Binary, error)
	GetForUpdate(ctx context.Context, uid string) (*models.Binary, error)
}
