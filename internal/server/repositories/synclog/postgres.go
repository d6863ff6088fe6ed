// Package synclog persists sync attempts in the sync_log table.
package synclog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/server/models"
)

// PostgresRepository implements the ledger storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert adds a new attempt row. The entry is stored as given, including status.
func (r *PostgresRepository) Insert(ctx context.Context, entry *models.SyncLogEntry) error {
	query := `
		INSERT INTO sync_log (uid, binary_uid, checksum, sync_date, status, action, error_msg)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.UID, entry.BinaryUID, entry.Checksum, entry.SyncDate, string(entry.Status), entry.Action, entry.ErrorMsg)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Complete moves a todo row to its terminal status. Rows that are already
// terminal (or missing) are left alone and common.ErrAlreadyCompleted is returned.
func (r *PostgresRepository) Complete(ctx context.Context, uid string, status models.SyncStatus, errMsg string) error {
	query := `UPDATE sync_log SET status=$2, error_msg=$3 WHERE uid=$1 AND status='todo'`
	res, err := r.db.ExecContext(ctx, query, uid, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrAlreadyCompleted
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Get returns one attempt by uid or common.ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, uid string) (*models.SyncLogEntry, error) {
	query := `SELECT uid, binary_uid, checksum, sync_date, status, action, error_msg FROM sync_log WHERE uid=$1`

	var e models.SyncLogEntry
	var status string
	err := r.db.QueryRowContext(ctx, query, uid).
		Scan(&e.UID, &e.BinaryUID, &e.Checksum, &e.SyncDate, &status, &e.Action, &e.ErrorMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select sync_log: %w", err)
	}
	e.Status = models.SyncStatus(status)
	return &e, nil
}

// ListStale returns todo attempts logged before the given instant, oldest first.
func (r *PostgresRepository) ListStale(ctx context.Context, before time.Time) ([]*models.SyncLogEntry, error) {
	query := `
		SELECT uid, binary_uid, checksum, sync_date, status, action, error_msg FROM sync_log
		WHERE status='todo' AND sync_date < $1
		ORDER BY sync_date
	`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync_log: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncLogEntry
	for rows.Next() {
		var e models.SyncLogEntry
		var status string
		if err := rows.Scan(&e.UID, &e.BinaryUID, &e.Checksum, &e.SyncDate, &status, &e.Action, &e.ErrorMsg); err != nil {
			return nil, err
		}
		e.Status = models.SyncStatus(status)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
