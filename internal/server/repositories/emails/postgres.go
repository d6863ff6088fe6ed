// Package emails persists scheduled alert rows for an external mailer.
package emails

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

// FindToSendBySubject returns the pending alert with the given subject and
// locks it for the rest of the transaction. common.ErrNotFound when none.
func (r *PostgresRepository) FindToSendBySubject(ctx context.Context, subject string) (*models.EmailAlert, error) {
	query := `
		SELECT uid, from_addr, to_addr, subject, text, html, schedule_type, schedule_date, status
		FROM email_alerts WHERE subject=$1 AND status='tosend'
		FOR UPDATE
	`
	var a models.EmailAlert
	var scheduleType string
	var scheduleDate sql.NullTime
	err := r.db.QueryRowContext(ctx, query, subject).Scan(
		&a.UID, &a.FromAddr, &a.ToAddr, &a.Subject, &a.Text, &a.HTML, &scheduleType, &scheduleDate, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select email_alerts: %w", err)
	}
	a.ScheduleType = models.ScheduleType(scheduleType)
	if scheduleDate.Valid {
		t := scheduleDate.Time
		a.ScheduleDate = &t
	}
	return &a, nil
}

// Insert adds a new alert. When a tosend alert with the same subject was
// committed in the meantime, the bodies of a are appended to it instead and
// its schedule is kept.
func (r *PostgresRepository) Insert(ctx context.Context, a *models.EmailAlert) error {
	query := `
		INSERT INTO email_alerts (uid, from_addr, to_addr, subject, text, html, schedule_type, schedule_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (subject) WHERE status = 'tosend'
		DO UPDATE SET
			text = email_alerts.text || EXCLUDED.text,
			html = email_alerts.html || EXCLUDED.html
	`
	var scheduleDate sql.NullTime
	if a.ScheduleDate != nil {
		scheduleDate = sql.NullTime{Time: *a.ScheduleDate, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		a.UID, a.FromAddr, a.ToAddr, a.Subject, a.Text, a.HTML, string(a.ScheduleType), scheduleDate, a.Status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateBodies overwrites text and html of one alert.
func (r *PostgresRepository) UpdateBodies(ctx context.Context, uid, text, html string) error {
	query := `UPDATE email_alerts SET text=$2, html=$3 WHERE uid=$1`
	res, err := r.db.ExecContext(ctx, query, uid, text, html)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
	return nil
}
