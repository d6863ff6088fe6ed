// Package store is the client's local binary cache. Each record is kept as a
// pair of kv entries, the blob and the last-synced BinaryRecord snapshot, which
// are always written and removed together.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/binsync/internal/checksum"
	"github.com/dmitrijs2005/binsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/cryptox"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/filex"
	"github.com/dmitrijs2005/binsync/internal/models"
)

const (
	fileKeyPrefix   = "bin-file-"
	recordKeyPrefix = "bin-record-"
	saltKey         = "cache-salt"
)

// LocalContent is the cached blob together with its digest.
type LocalContent struct {
	Content  []byte
	Checksum string
}

type Store struct {
	db     *sql.DB
	prefix string
	sealer cryptox.Sealer
}

type Option func(*Store)

// WithSealer seals blob values at rest. Records stay readable so the cache
// can be listed without the passphrase.
func WithSealer(s cryptox.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

// New returns a Store whose keys are namespaced by prefix.
func New(db *sql.DB, prefix string, opts ...Option) *Store {
	s := &Store{db: db, prefix: prefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) FileKey(uid string) string   { return s.prefix + fileKeyPrefix + uid }
func (s *Store) RecordKey(uid string) string { return s.prefix + recordKeyPrefix + uid }

func (s *Store) repo() kv.Repository { return kv.NewSQLiteRepository(s.db) }

func validRecord(rec *models.BinaryRecord) error {
	if rec == nil || rec.UID == "" {
		return fmt.Errorf("%w: record with uid is required", common.ErrValidation)
	}
	return nil
}

// SaveBinary stores the content of src and a snapshot of rec in one
// transaction. A file source fills in an empty filename.
func (s *Store) SaveBinary(ctx context.Context, src Source, rec *models.BinaryRecord) error {
	if err := validRecord(rec); err != nil {
		return err
	}

	buf, err := src.buffer()
	if err != nil {
		return err
	}

	snap := rec.Clone()
	if snap.Filename == "" {
		snap.Filename = src.filename()
	}
	recJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	blob, err := s.seal(buf)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return kv.NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{
			s.FileKey(rec.UID):   blob,
			s.RecordKey(rec.UID): recJSON,
		})
	})
}

// GetLocalInfos returns the snapshot and content of rec. A half-written or
// missing entry yields (nil, nil, nil).
func (s *Store) GetLocalInfos(ctx context.Context, rec *models.BinaryRecord) (*models.BinaryRecord, *LocalContent, error) {
	if err := validRecord(rec); err != nil {
		return nil, nil, err
	}

	fileKey, recordKey := s.FileKey(rec.UID), s.RecordKey(rec.UID)
	values, err := s.repo().GetMany(ctx, []string{fileKey, recordKey})
	if err != nil {
		return nil, nil, err
	}

	rawRecord, okRecord := values[recordKey]
	rawFile, okFile := values[fileKey]
	if !okRecord || !okFile {
		return nil, nil, nil
	}

	snap, err := decodeRecord(rawRecord)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.open(rawFile)
	if err != nil {
		return nil, nil, err
	}

	return snap, &LocalContent{Content: content, Checksum: checksum.Bytes(content)}, nil
}

// GetFileBuffer returns the cached bytes of rec, or (nil, nil) when no blob is
// stored. A stored empty blob comes back as a non-nil empty slice.
func (s *Store) GetFileBuffer(ctx context.Context, rec *models.BinaryRecord) ([]byte, error) {
	if err := validRecord(rec); err != nil {
		return nil, err
	}

	raw, err := s.repo().Get(ctx, s.FileKey(rec.UID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return s.open(raw)
}

// OpenFile writes the cached blob into dir and returns the written path. The
// name is filename, else the snapshot's filename, else the uid.
func (s *Store) OpenFile(ctx context.Context, rec *models.BinaryRecord, filename, dir string) (string, error) {
	snap, local, err := s.GetLocalInfos(ctx, rec)
	if err != nil {
		return "", err
	}
	if snap == nil {
		return "", fmt.Errorf("%w: no cached binary %s", common.ErrNotFound, rec.UID)
	}

	name := filename
	if name == "" {
		name = snap.Filename
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		name = snap.UID
	}

	path := filepath.Join(dir, name)
	if _, err := filex.WriteAtomic(path, bytes.NewReader(local.Content)); err != nil {
		return "", err
	}
	return path, nil
}

// MarkAsUploaded replaces the snapshot with the authoritative server record.
func (s *Store) MarkAsUploaded(ctx context.Context, rec *models.BinaryRecord) error {
	if err := validRecord(rec); err != nil {
		return err
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.repo().Set(ctx, s.RecordKey(rec.UID), recJSON)
}

// List returns the snapshot of every cached record ordered by uid.
func (s *Store) List(ctx context.Context) ([]*models.BinaryRecord, error) {
	keys, err := s.repo().Keys(ctx, s.prefix+recordKeyPrefix)
	if err != nil {
		return nil, err
	}
	values, err := s.repo().GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*models.BinaryRecord, 0, len(keys))
	for _, k := range keys {
		raw, ok := values[k]
		if !ok {
			continue
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.TrimPrefix(k, s.prefix), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Evict drops both entries of uid.
func (s *Store) Evict(ctx context.Context, uid string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return kv.NewSQLiteRepository(tx).DeleteMany(ctx, []string{s.FileKey(uid), s.RecordKey(uid)})
	})
}

func (s *Store) seal(b []byte) ([]byte, error) {
	if s.sealer == nil {
		return b, nil
	}
	sealed, err := s.sealer.Seal(b)
	if err != nil {
		return nil, fmt.Errorf("seal blob: %w", err)
	}
	return sealed, nil
}

func (s *Store) open(b []byte) ([]byte, error) {
	if s.sealer == nil {
		return b, nil
	}
	plain, err := s.sealer.Open(b)
	if err != nil {
		return nil, fmt.Errorf("open sealed blob: %w", err)
	}
	if plain == nil {
		plain = []byte{}
	}
	return plain, nil
}

func decodeRecord(raw []byte) (*models.BinaryRecord, error) {
	var rec models.BinaryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// Salt returns the cache's sealing salt, creating and storing one on first
// use.
func Salt(ctx context.Context, db *sql.DB, prefix string) ([]byte, error) {
	var salt []byte
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := kv.NewSQLiteRepository(tx)
		existing, err := r.Get(ctx, prefix+saltKey)
		if err != nil {
			return err
		}
		if existing != nil {
			salt = existing
			return nil
		}
		if salt, err = cryptox.NewSalt(); err != nil {
			return err
		}
		return r.Set(ctx, prefix+saltKey, salt)
	})
	if err != nil {
		return nil, err
	}
	return salt, nil
}
