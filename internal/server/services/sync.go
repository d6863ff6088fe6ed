package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/binsync/internal/checksum"
	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/filex"
	"github.com/dmitrijs2005/binsync/internal/logging"
	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/dmitrijs2005/binsync/internal/server/blobstore"
	"github.com/dmitrijs2005/binsync/internal/server/ledger"
	smodels "github.com/dmitrijs2005/binsync/internal/server/models"
	"github.com/dmitrijs2005/binsync/internal/server/pathresolver"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"golang.org/x/sync/semaphore"
)

const (
	// UploadPrefix marks actions whose content becomes the canonical blob.
	UploadPrefix = "upload"

	defaultMaxTransfers = 4
	fallbackMimeType    = "application/octet-stream"
)

// ErrNotLogged marks attempts that failed before their ledger row was
// committed. Nothing refers to their staged payload.
var ErrNotLogged = errors.New("attempt not logged")

// SyncRequest is one client intent. ContentPath points at the staged
// payload and is empty for metadata-only actions.
type SyncRequest struct {
	Action      string
	Checksum    string
	Record      *models.BinaryRecord
	ContentPath string
}

func (r *SyncRequest) IsUpload() bool {
	return strings.HasPrefix(r.Action, UploadPrefix)
}

func (r *SyncRequest) validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: empty request", common.ErrValidation)
	case r.Action == "":
		return fmt.Errorf("%w: action is required", common.ErrValidation)
	case r.Checksum == "":
		return fmt.Errorf("%w: checksum is required", common.ErrValidation)
	case r.Record == nil || r.Record.UID == "":
		return fmt.Errorf("%w: binaryRecord with uid is required", common.ErrValidation)
	case r.IsUpload() && r.ContentPath == "":
		return fmt.Errorf("%w: contents are required for %q", common.ErrValidation, r.Action)
	}
	return nil
}

type EngineConfig struct {
	PathStorage string
	PathPattern string
	// MaxConcurrentTransfers bounds parallel copy and verify phases.
	MaxConcurrentTransfers int64
}

type alertScheduler interface {
	Schedule(ctx context.Context, tx dbx.DBTX, errMsg string) error
}

// SyncEngine applies sync attempts. Every attempt is logged as todo in its
// own transaction before any file is touched, then finished as done or error
// in a second transaction together with the canonical record update.
type SyncEngine struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	ledger *ledger.Ledger
	alerts alertScheduler
	blobs  blobstore.Store
	cfg    EngineConfig
	sem    *semaphore.Weighted
	logger logging.Logger

	now    func() time.Time
	newUID func() string
}

func NewSyncEngine(db *sql.DB, repos repomanager.RepositoryManager, alerts alertScheduler,
	blobs blobstore.Store, cfg EngineConfig, logger logging.Logger) (*SyncEngine, error) {
	if cfg.PathStorage == "" {
		return nil, fmt.Errorf("%w: pathStorage is required", common.ErrConfig)
	}
	if cfg.PathPattern == "" {
		cfg.PathPattern = pathresolver.DefaultPattern
	}
	if cfg.MaxConcurrentTransfers <= 0 {
		cfg.MaxConcurrentTransfers = defaultMaxTransfers
	}
	if err := filex.EnsureDir(cfg.PathStorage); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfig, err)
	}

	return &SyncEngine{
		db:     db,
		repos:  repos,
		ledger: ledger.New(repos),
		alerts: alerts,
		blobs:  blobs,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrentTransfers),
		logger: logger.With("module", "sync"),
		now:    time.Now,
		newUID: uuid.NewString,
	}, nil
}

// StagingDir is where the boundary parks inbound payloads before Sync.
func (s *SyncEngine) StagingDir() string {
	return filepath.Join(s.cfg.PathStorage, "temp")
}

// Sync runs one attempt to done or error and returns the authoritative record.
// Once the attempt is logged, cancelling ctx no longer aborts it.
func (s *SyncEngine) Sync(ctx context.Context, req *SyncRequest) (*models.BinaryRecord, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	rec := req.Record.Clone()
	if rec.CreationDatetime.IsZero() {
		rec.CreationDatetime = s.now().UTC()
	}

	attempt := &smodels.SyncLogEntry{
		UID:       s.newUID(),
		BinaryUID: rec.UID,
		Checksum:  req.Checksum,
		SyncDate:  s.now(),
		Action:    req.Action,
	}
	log := s.logger.With("sync_uid", attempt.UID, "binary_uid", rec.UID, "action", req.Action)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.ledger.Begin(ctx, tx, attempt)
	})
	if err != nil {
		log.Error(ctx, "failed to log sync attempt", "error", err)
		return nil, fmt.Errorf("%w: %w: %w", common.ErrTransaction, ErrNotLogged, err)
	}
	log.Debug(ctx, "sync attempt logged")

	ctx = context.WithoutCancel(ctx)

	var result *models.BinaryRecord
	var applyErr error
	var blobs blobChange
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		applyErr = dbx.WithSavepoint(ctx, tx, "apply", func(ctx context.Context) error {
			var err error
			result, err = s.apply(ctx, tx, attempt, rec, req, &blobs)
			return err
		})
		if applyErr == nil {
			return s.ledger.Complete(ctx, tx, attempt.UID, smodels.SyncStatusDone, "")
		}

		msg := fmt.Sprintf("%+v", applyErr)
		if err := s.ledger.Complete(ctx, tx, attempt.UID, smodels.SyncStatusError, msg); err != nil {
			return err
		}
		alertMsg := fmt.Sprintf("binary %s, attempt %s, action %s: %s", rec.UID, attempt.UID, req.Action, msg)
		if err := dbx.WithSavepoint(ctx, tx, "alert", func(ctx context.Context) error {
			return s.alerts.Schedule(ctx, tx, alertMsg)
		}); err != nil {
			log.Error(ctx, "failed to schedule alert", "error", err)
		}
		return nil
	})
	if err != nil || applyErr != nil {
		s.dropBlob(ctx, log, blobs.written)
	} else {
		s.dropBlob(ctx, log, blobs.superseded)
	}
	if err != nil {
		err = fmt.Errorf("%w: finalize attempt: %w", common.ErrTransaction, err)
		log.Error(ctx, "failed to finalize sync attempt", "error", err, "apply_error", applyErr)
		if applyErr != nil {
			return nil, errors.Join(applyErr, err)
		}
		return nil, err
	}
	if applyErr != nil {
		log.Warn(ctx, "sync attempt failed", "error", applyErr)
		return nil, applyErr
	}

	log.Info(ctx, "sync attempt done", "checksum", result.Checksum)
	return result, nil
}

// blobChange tracks canonical blobs touched by one attempt. written is
// dropped when the attempt does not commit, superseded when it does.
type blobChange struct {
	written    string
	superseded string
}

func (s *SyncEngine) dropBlob(ctx context.Context, log logging.Logger, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Warn(ctx, "failed to delete canonical blob", "key", key, "error", err)
	}
}

func (s *SyncEngine) apply(ctx context.Context, tx dbx.DBTX, attempt *smodels.SyncLogEntry,
	rec *models.BinaryRecord, req *SyncRequest, blobs *blobChange) (*models.BinaryRecord, error) {
	if req.ContentPath == "" {
		return rec, nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	rel, dst, err := s.transfer(attempt.UID, rec, req)
	s.sem.Release(1)
	if err != nil {
		return nil, err
	}

	if !req.IsUpload() {
		return rec, nil
	}
	return s.persist(ctx, tx, attempt, rec, req, rel, dst, blobs)
}

// transfer copies the staged payload to its per-attempt path and verifies
// the copy. A mismatching copy stays on disk for inspection.
func (s *SyncEngine) transfer(syncUID string, rec *models.BinaryRecord, req *SyncRequest) (string, string, error) {
	rel := pathresolver.Resolve(s.cfg.PathPattern, rec, syncUID, s.now())
	dst, err := pathresolver.Join(s.cfg.PathStorage, rel)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	if _, err := filex.CopyFile(req.ContentPath, dst); err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrTransport, err)
	}

	sum, err := checksum.File(dst)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	if !checksum.Equal(sum, req.Checksum) {
		return "", "", fmt.Errorf("%w: checksum mismatch for %s: claimed %s, got %s",
			common.ErrIntegrity, rel, req.Checksum, sum)
	}
	return rel, dst, nil
}

// persist stores the verified copy as a new canonical blob and points the
// canonical row at it. The row is locked first, so the blob it replaces is
// the one committed by the previous applier.
func (s *SyncEngine) persist(ctx context.Context, tx dbx.DBTX, attempt *smodels.SyncLogEntry,
	rec *models.BinaryRecord, req *SyncRequest, rel, dst string, blobs *blobChange) (*models.BinaryRecord, error) {
	if rec.MimeType == "" {
		rec.MimeType = sniffMime(dst)
	}

	f, err := os.Open(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransport, err)
	}

	key := blobstore.Key(rec.UID, attempt.UID)
	if err := s.blobs.Put(ctx, key, f, st.Size()); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	blobs.written = key

	repo := s.repos.Binaries(tx)
	prev, err := repo.GetForUpdate(ctx, rec.UID)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return nil, err
	case prev.StorageKey != key:
		blobs.superseded = prev.StorageKey
	}

	rec.Checksum = strings.ToLower(req.Checksum)
	rec.SyncUID = attempt.UID

	if err := repo.Upsert(ctx, &smodels.Binary{
		Record:      *rec,
		StorageKey:  key,
		ArchivePath: rel,
		UpdatedAt:   s.now(),
	}); err != nil {
		return nil, err
	}

	stored, err := repo.GetByUID(ctx, rec.UID)
	if err != nil {
		return nil, err
	}
	return stored.Record.Clone(), nil
}

func sniffMime(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return fallbackMimeType
	}
	return kind.MIME.Value
}

// Record returns the canonical record for uid or common.ErrNotFound.
func (s *SyncEngine) Record(ctx context.Context, uid string) (*models.BinaryRecord, error) {
	b, err := s.repos.Binaries(s.db).GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return b.Record.Clone(), nil
}

// Content opens the canonical blob of uid together with the record it
// belongs to. The caller closes the reader.
func (s *SyncEngine) Content(ctx context.Context, uid string) (io.ReadCloser, *models.BinaryRecord, error) {
	repo := s.repos.Binaries(s.db)
	b, err := repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, b.StorageKey)
	if errors.Is(err, common.ErrNotFound) {
		// A newer attempt committed and dropped the blob between the two reads.
		var cur *smodels.Binary
		if cur, err = repo.GetByUID(ctx, uid); err != nil {
			return nil, nil, err
		}
		if cur.StorageKey == b.StorageKey {
			return nil, nil, common.ErrNotFound
		}
		b = cur
		rc, err = s.blobs.Open(ctx, b.StorageKey)
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, b.Record.Clone(), nil
}

// StaleAttempts lists attempts still todo after olderThan.
func (s *SyncEngine) StaleAttempts(ctx context.Context, olderThan time.Duration) ([]*smodels.SyncLogEntry, error) {
	return s.ledger.Stale(ctx, s.db, olderThan)
}
