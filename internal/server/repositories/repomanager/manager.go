package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/binaries"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/emails"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/synclog"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	SyncLog(db dbx.DBTX) synclog.Repository
	Binaries(db dbx.DBTX) binaries.Repository
	Emails(db dbx.DBTX) emails.Repository
}
