// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/server/migrations"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/binaries"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/emails"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/synclog"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound to
// whatever DBTX the caller is holding, usually the current transaction.
type PostgresRepositoryManager struct{}

// SyncLog returns the attempt ledger repository bound to db.
func (m *PostgresRepositoryManager) SyncLog(db dbx.DBTX) synclog.Repository {
	return synclog.NewPostgresRepository(db)
}

// Binaries returns the canonical record repository bound to db.
func (m *PostgresRepositoryManager) Binaries(db dbx.DBTX) binaries.Repository {
	return binaries.NewPostgresRepository(db)
}

// Emails returns the alert repository bound to db.
func (m *PostgresRepositoryManager) Emails(db dbx.DBTX) emails.Repository {
	return emails.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded server schema.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
