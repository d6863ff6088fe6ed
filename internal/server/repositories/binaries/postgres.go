// Package binaries persists the canonical per-record rows.
package binaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert replaces the canonical row for b.Record.UID. creation_datetime is
// kept from the first insert; everything else follows the latest applied
// attempt.
func (r *PostgresRepository) Upsert(ctx context.Context, b *models.Binary) error {
	query := `
		INSERT INTO binaries (uid, table_name, table_uid, filename, mime_type, creation_datetime,
			checksum, sync_uid, storage_key, archive_path, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (uid)
		DO UPDATE SET
			table_name = EXCLUDED.table_name,
			table_uid = EXCLUDED.table_uid,
			filename = EXCLUDED.filename,
			mime_type = EXCLUDED.mime_type,
			checksum = EXCLUDED.checksum,
			sync_uid = EXCLUDED.sync_uid,
			storage_key = EXCLUDED.storage_key,
			archive_path = EXCLUDED.archive_path,
			updated_at = EXCLUDED.updated_at
	`
	rec := b.Record
	_, err := r.db.ExecContext(ctx, query,
		rec.UID, rec.TableName, rec.TableUID, rec.Filename, rec.MimeType, rec.CreationDatetime,
		rec.Checksum, rec.SyncUID, b.StorageKey, b.ArchivePath, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectBinary = `
	SELECT uid, table_name, table_uid, filename, mime_type, creation_datetime,
		checksum, sync_uid, storage_key, archive_path, updated_at
	FROM binaries WHERE uid=$1
`

// GetByUID returns the canonical row or common.ErrNotFound.
func (r *PostgresRepository) GetByUID(ctx context.Context, uid string) (*models.Binary, error) {
	return r.get(ctx, selectBinary, uid)
}

// GetForUpdate is GetByUID that also locks the row until the transaction
// ends. Concurrent appliers of one record queue here, so each of them sees
// the row committed by the previous one.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, uid string) (*models.Binary, error) {
	return r.get(ctx, selectBinary+" FOR UPDATE", uid)
}

func (r *PostgresRepository) get(ctx context.Context, query, uid string) (*models.Binary, error) {
	var b models.Binary
	rec := &b.Record
	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&rec.UID, &rec.TableName, &rec.TableUID, &rec.Filename, &rec.MimeType, &rec.CreationDatetime,
		&rec.Checksum, &rec.SyncUID, &b.StorageKey, &b.ArchivePath, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select binaries: %w", err)
	}
	return &b, nil
}
