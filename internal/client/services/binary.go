package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/binsync/internal/checksum"
	"github.com/dmitrijs2005/binsync/internal/client/client"
	"github.com/dmitrijs2005/binsync/internal/client/store"
	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/logging"
	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
)

// ActionUpload is the sync verb for content the server should keep as the
// record's canonical blob.
const ActionUpload = "upload"

// LocalInfo describes one cached record and whether its content differs from
// the last synced version.
type LocalInfo struct {
	Record   *models.BinaryRecord
	Checksum string
	Size     int
	Pending  bool
}

// SyncResult is the outcome for one record of a SyncAll run.
type SyncResult struct {
	UID    string
	Record *models.BinaryRecord
	Err    error
}

type BinaryService interface {
	Add(ctx context.Context, path string, rec *models.BinaryRecord) (*models.BinaryRecord, error)
	Update(ctx context.Context, uid, path string) (*models.BinaryRecord, error)
	Info(ctx context.Context, uid string) (*LocalInfo, error)
	Open(ctx context.Context, uid, filename, dir string) (string, error)
	List(ctx context.Context) ([]*LocalInfo, error)
	Evict(ctx context.Context, uid string) error
	Upload(ctx context.Context, uid string) (*models.BinaryRecord, error)
	SyncAll(ctx context.Context) ([]SyncResult, error)
	Pull(ctx context.Context, uid string) (*models.BinaryRecord, error)
}

type localStore interface {
	SaveBinary(ctx context.Context, src store.Source, rec *models.BinaryRecord) error
	GetLocalInfos(ctx context.Context, rec *models.BinaryRecord) (*models.BinaryRecord, *store.LocalContent, error)
	OpenFile(ctx context.Context, rec *models.BinaryRecord, filename, dir string) (string, error)
	MarkAsUploaded(ctx context.Context, rec *models.BinaryRecord) error
	List(ctx context.Context) ([]*models.BinaryRecord, error)
	Evict(ctx context.Context, uid string) error
}

type SyncConfig struct {
	// Parallelism bounds concurrent uploads in SyncAll.
	Parallelism int
	// MaxAttempts bounds tries per record while the server is unavailable.
	MaxAttempts int
	RetryMin    time.Duration
	RetryMax    time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryMin <= 0 {
		c.RetryMin = 500 * time.Millisecond
	}
	if c.RetryMax < c.RetryMin {
		c.RetryMax = 10 * time.Second
	}
	return c
}

type binaryService struct {
	store  localStore
	client client.Client
	cfg    SyncConfig
	logger logging.Logger

	now    func() time.Time
	newUID func() string
}

func NewBinaryService(st localStore, c client.Client, cfg SyncConfig, logger logging.Logger) BinaryService {
	return &binaryService{
		store:  st,
		client: c,
		cfg:    cfg.withDefaults(),
		logger: logger.With("module", "binaries"),
		now:    time.Now,
		newUID: uuid.NewString,
	}
}

// Add caches the file at path as a new record. An empty uid gets a fresh one.
func (s *binaryService) Add(ctx context.Context, path string, rec *models.BinaryRecord) (*models.BinaryRecord, error) {
	r := rec.Clone()
	if r == nil {
		r = &models.BinaryRecord{}
	}
	if r.UID == "" {
		r.UID = s.newUID()
	}
	if r.CreationDatetime.IsZero() {
		r.CreationDatetime = s.now().UTC()
	}

	if err := s.store.SaveBinary(ctx, store.FromFile(path), r); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	snap, _, err := s.store.GetLocalInfos(ctx, r)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "binary cached", "uid", r.UID)
	return snap, nil
}

// Update replaces the cached content of uid, keeping its last synced snapshot
// so the change shows up as pending.
func (s *binaryService) Update(ctx context.Context, uid, path string) (*models.BinaryRecord, error) {
	snap, _, err := s.store.GetLocalInfos(ctx, &models.BinaryRecord{UID: uid})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: no cached binary %s", common.ErrNotFound, uid)
	}

	if err := s.store.SaveBinary(ctx, store.FromFile(path), snap); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return snap, nil
}

func (s *binaryService) Info(ctx context.Context, uid string) (*LocalInfo, error) {
	snap, local, err := s.store.GetLocalInfos(ctx, &models.BinaryRecord{UID: uid})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: no cached binary %s", common.ErrNotFound, uid)
	}
	return localInfo(snap, local), nil
}

func localInfo(snap *models.BinaryRecord, local *store.LocalContent) *LocalInfo {
	return &LocalInfo{
		Record:   snap,
		Checksum: local.Checksum,
		Size:     len(local.Content),
		Pending:  !checksum.Equal(snap.Checksum, local.Checksum),
	}
}

func (s *binaryService) Open(ctx context.Context, uid, filename, dir string) (string, error) {
	return s.store.OpenFile(ctx, &models.BinaryRecord{UID: uid}, filename, dir)
}

// List reports every complete cache entry. Half-written entries are skipped.
func (s *binaryService) List(ctx context.Context) ([]*LocalInfo, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*LocalInfo, 0, len(recs))
	for _, rec := range recs {
		snap, local, err := s.store.GetLocalInfos(ctx, rec)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			continue
		}
		out = append(out, localInfo(snap, local))
	}
	return out, nil
}

func (s *binaryService) Evict(ctx context.Context, uid string) error {
	return s.store.Evict(ctx, uid)
}

// Upload sends the cached content of uid and records the server's answer as
// the new snapshot.
func (s *binaryService) Upload(ctx context.Context, uid string) (*models.BinaryRecord, error) {
	snap, local, err := s.store.GetLocalInfos(ctx, &models.BinaryRecord{UID: uid})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: no cached binary %s", common.ErrNotFound, uid)
	}

	var rec *models.BinaryRecord
	err = s.retry(ctx, uid, func() error {
		var err error
		rec, err = s.client.Sync(ctx, client.SyncRequest{
			Action:   ActionUpload,
			Checksum: local.Checksum,
			Record:   snap,
			Content:  bytes.NewReader(local.Content),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkAsUploaded(ctx, rec); err != nil {
		return nil, fmt.Errorf("mark as uploaded: %w", err)
	}
	s.logger.Info(ctx, "binary uploaded", "uid", uid, "sync_uid", rec.SyncUID)
	return rec, nil
}

// SyncAll uploads every pending record. Failures are reported per record and
// do not stop the others.
func (s *binaryService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, info := range infos {
		if info.Pending {
			pending = append(pending, info.Record.UID)
		}
	}

	results := make([]SyncResult, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)

	for i, uid := range pending {
		g.Go(func() error {
			rec, err := s.Upload(gctx, uid)
			results[i] = SyncResult{UID: uid, Record: rec, Err: err}
			if err != nil {
				s.logger.Warn(gctx, "binary sync failed", "uid", uid, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

// Pull downloads the canonical content of uid into the cache, replacing any
// local version.
func (s *binaryService) Pull(ctx context.Context, uid string) (*models.BinaryRecord, error) {
	var rec *models.BinaryRecord
	var content []byte

	err := s.retry(ctx, uid, func() error {
		var err error
		if rec, err = s.client.GetRecord(ctx, uid); err != nil {
			return err
		}
		body, serverSum, err := s.client.Download(ctx, uid)
		if err != nil {
			return err
		}
		defer body.Close()

		if content, err = io.ReadAll(body); err != nil {
			return fmt.Errorf("%w: %w", client.ErrUnavailable, err)
		}
		if serverSum == "" {
			serverSum = rec.Checksum
		}
		if got := checksum.Bytes(content); !checksum.Equal(got, serverSum) {
			return fmt.Errorf("%w: downloaded %s, server reports %s", common.ErrIntegrity, got, serverSum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveBinary(ctx, store.FromBytes(content), rec); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return rec, nil
}

// retry runs fn until it succeeds, fails with something other than
// ErrUnavailable, or the attempts run out.
func (s *binaryService) retry(ctx context.Context, uid string, fn func() error) error {
	b := &backoff.Backoff{Min: s.cfg.RetryMin, Max: s.cfg.RetryMax, Factor: 2, Jitter: true}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, client.ErrUnavailable) || attempt >= s.cfg.MaxAttempts {
			return err
		}

		d := b.Duration()
		s.logger.Warn(ctx, "server unavailable, retrying", "uid", uid, "attempt", attempt, "delay", d)

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
