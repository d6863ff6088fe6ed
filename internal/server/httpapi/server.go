// Package httpapi is the HTTP boundary of the sync server.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/binsync/internal/logging"
	"github.com/dmitrijs2005/binsync/internal/models"
	smodels "github.com/dmitrijs2005/binsync/internal/server/models"
	"github.com/dmitrijs2005/binsync/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type syncEngine interface {
	Sync(ctx context.Context, req *services.SyncRequest) (*models.BinaryRecord, error)
	Record(ctx context.Context, uid string) (*models.BinaryRecord, error)
	Content(ctx context.Context, uid string) (io.ReadCloser, *models.BinaryRecord, error)
	StaleAttempts(ctx context.Context, olderThan time.Duration) ([]*smodels.SyncLogEntry, error)
	StagingDir() string
}

type Server struct {
	address string
	engine  syncEngine
	logger  logging.Logger
	secret  []byte
}

// NewServer builds the HTTP boundary. An empty secret disables bearer checks.
func NewServer(address string, engine syncEngine, l logging.Logger, secret string) *Server {
	return &Server{
		address: address,
		engine:  engine,
		logger:  l.With("module", "http_server"),
		secret:  []byte(secret),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Post("/sync", s.withError(s.handleSync))
		r.Get("/sync/stale", s.withError(s.handleStale))
		r.Get("/binaries/{uid}", s.withError(s.handleRecord))
		r.Get("/binaries/{uid}/content", s.withError(s.handleContent))
	})
	return r
}

// Run serves until ctx is cancelled. Default timeouts are short; the sync
// route lifts them per request.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
