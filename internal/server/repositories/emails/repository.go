package emails

import (
	"context"

	"github.com/dmitrijs2005/binsync/internal/server/models"
)

type Repository interface {
	FindToSendBySubject(ctx context.Context, subject string) (*models.EmailAlert, error)
	// Insert appends to the pending alert of the same subject if one exists.
	Insert(ctx context.Context, alert *models.EmailAlert) error
	UpdateBodies(ctx context.Context, uid, text, html string) error
}
