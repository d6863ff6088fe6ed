// Package server wires the sync server together: database, migrations,
// blob store, sync engine, and the HTTP and gRPC endpoints.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/binsync/internal/logging"
	"github.com/dmitrijs2005/binsync/internal/server/alerts"
	"github.com/dmitrijs2005/binsync/internal/server/blobstore"
	"github.com/dmitrijs2005/binsync/internal/server/config"
	"github.com/dmitrijs2005/binsync/internal/server/httpapi"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/binsync/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/binsync/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
	grpc   *gs.GRPCServer
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{File: c.LogFile, Debug: c.Debug})

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB,
	rm repomanager.RepositoryManager) (*App, error) {
	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, err
	}

	scheduler, err := alerts.NewScheduler(c.AlertConfig(), rm)
	if err != nil {
		return nil, err
	}

	engine, err := services.NewSyncEngine(db, rm, scheduler, blobs, services.EngineConfig{
		PathStorage:            c.PathStorage,
		PathPattern:            c.PathPattern,
		MaxConcurrentTransfers: c.MaxConcurrentTransfers,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sync engine ready",
		"storage", c.PathStorage, "blob_backend", c.BlobBackend, "email_alert", scheduler.Mode(),
		"auth", c.SecretKey != "")

	return &App{
		config: c,
		logger: logger,
		db:     db,
		http:   httpapi.NewServer(c.EndpointAddrHTTP, engine, logger, c.SecretKey),
		grpc:   gs.NewGRPCServer(c.EndpointAddrGRPC, logger),
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, c.S3)
	default:
		return blobstore.NewFSStore(filepath.Join(c.PathStorage, "records"))
	}
}

// Run serves both endpoints until a signal arrives or one of them fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(ctx) })
	g.Go(func() error { return app.grpc.Run(ctx) })

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(context.Background(), "db close failed", "error", cerr)
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
