// Package ledger records the intent and outcome of every sync attempt.
// An attempt is one row: inserted as todo, moved once to done or error.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/server/models"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/synclog"
)

type repoProvider interface {
	SyncLog(db dbx.DBTX) synclog.Repository
}

type Ledger struct {
	repos repoProvider
	now   func() time.Time
}

func New(repos repoProvider) *Ledger {
	return &Ledger{repos: repos, now: time.Now}
}

// Begin inserts entry as a todo row inside tx. SyncDate defaults to now.
func (l *Ledger) Begin(ctx context.Context, tx dbx.DBTX, entry *models.SyncLogEntry) error {
	if entry.UID == "" || entry.BinaryUID == "" {
		return fmt.Errorf("%w: sync log entry needs uid and binary uid", common.ErrValidation)
	}
	if entry.UID == entry.BinaryUID {
		return fmt.Errorf("%w: attempt uid must differ from binary uid", common.ErrValidation)
	}
	entry.Status = models.SyncStatusTodo
	entry.ErrorMsg = ""
	if entry.SyncDate.IsZero() {
		entry.SyncDate = l.now()
	}
	return l.repos.SyncLog(tx).Insert(ctx, entry)
}

// Complete moves attempt uid from todo to status. A second completion of the
// same attempt fails with common.ErrAlreadyCompleted.
func (l *Ledger) Complete(ctx context.Context, tx dbx.DBTX, uid string, status models.SyncStatus, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %q is not a terminal status", common.ErrValidation, status)
	}
	if status == models.SyncStatusDone {
		errMsg = ""
	}
	return l.repos.SyncLog(tx).Complete(ctx, uid, status, errMsg)
}

// Stale lists attempts still todo after olderThan. Nothing retries them
// automatically; they are reported for an operator or an external sweep.
func (l *Ledger) Stale(ctx context.Context, db dbx.DBTX, olderThan time.Duration) ([]*models.SyncLogEntry, error) {
	return l.repos.SyncLog(db).ListStale(ctx, l.now().Add(-olderThan))
}
