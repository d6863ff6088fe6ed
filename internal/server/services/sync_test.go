package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/binsync/internal/checksum"
	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/logging"
	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/dmitrijs2005/binsync/internal/server/blobstore"
	smodels "github.com/dmitrijs2005/binsync/internal/server/models"
	"github.com/dmitrijs2005/binsync/internal/server/pathresolver"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/binaries"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/emails"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/synclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSyncLog struct {
	synclog.Repository
	mu        sync.Mutex
	rows      map[string]*smodels.SyncLogEntry
	insertErr error
}

func (m *memSyncLog) Insert(_ context.Context, e *smodels.SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	c := *e
	m.rows[e.UID] = &c
	return nil
}

func (m *memSyncLog) Complete(_ context.Context, uid string, status smodels.SyncStatus, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[uid]
	if !ok || r.Status != smodels.SyncStatusTodo {
		return common.ErrAlreadyCompleted
	}
	r.Status, r.ErrorMsg = status, msg
	return nil
}

func (m *memSyncLog) ListStale(_ context.Context, before time.Time) ([]*smodels.SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*smodels.SyncLogEntry
	for _, r := range m.rows {
		if r.Status == smodels.SyncStatusTodo && r.SyncDate.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memSyncLog) only(t *testing.T) *smodels.SyncLogEntry {
	t.Helper()
	require.Len(t, m.rows, 1)
	for _, r := range m.rows {
		return r
	}
	return nil
}

type memBinaries struct {
	binaries.Repository
	mu        sync.Mutex
	rows      map[string]*smodels.Binary
	upsertErr error
}

func (m *memBinaries) Upsert(_ context.Context, b *smodels.Binary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	c := *b
	if prev, ok := m.rows[b.Record.UID]; ok {
		c.Record.CreationDatetime = prev.Record.CreationDatetime
	}
	m.rows[b.Record.UID] = &c
	return nil
}

func (m *memBinaries) GetForUpdate(ctx context.Context, uid string) (*smodels.Binary, error) {
	return m.GetByUID(ctx, uid)
}

func (m *memBinaries) GetByUID(_ context.Context, uid string) (*smodels.Binary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[uid]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *b
	return &c, nil
}

type fakeRepos struct {
	repomanager.RepositoryManager
	log  *memSyncLog
	bins *memBinaries
}

func (f *fakeRepos) SyncLog(dbx.DBTX) synclog.Repository { return f.log }
func (f *fakeRepos) Binaries(dbx.DBTX) binaries.Repository { return f.bins }
func (f *fakeRepos) Emails(dbx.DBTX) emails.Repository { return nil }

type recordingAlerts struct {
	msgs []string
	err  error
}

func (r *recordingAlerts) Schedule(_ context.Context, _ dbx.DBTX, msg string) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

type harness struct {
	engine *SyncEngine
	mock   sqlmock.Sqlmock
	db     *sql.DB
	repos  *fakeRepos
	alerts *recordingAlerts
	blobs  *blobstore.FSStore
	root   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	blobs, err := blobstore.NewFSStore(filepath.Join(root, "records"))
	require.NoError(t, err)

	repos := &fakeRepos{
		log:  &memSyncLog{rows: map[string]*smodels.SyncLogEntry{}},
		bins: &memBinaries{rows: map[string]*smodels.Binary{}},
	}
	alerts := &recordingAlerts{}

	e, err := NewSyncEngine(db, repos, alerts, blobs, EngineConfig{PathStorage: root}, logging.Nop())
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC) }

	return &harness{engine: e, mock: mock, db: db, repos: repos, alerts: alerts, blobs: blobs, root: root}
}

func (h *harness) expectLogged() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) expectDone() {
	h.mock.ExpectBegin()
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectCommit()
}

func (h *harness) expectFailed() {
	h.mock.ExpectBegin()
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT alert")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT alert")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectCommit()
}

// blobFiles lists the canonical blobs stored for uid.
func (h *harness) blobFiles(t *testing.T, uid string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.root, "records", uid))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func stage(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestSync_UploadHello(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.expectDone()

	staged := stage(t, "hello")
	got, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action:      "upload",
		Checksum:    checksum.Bytes([]byte("hello")),
		Record:      &models.BinaryRecord{UID: "r1"},
		ContentPath: staged,
	})
	require.NoError(t, err)
	require.NoError(t, h.mock.ExpectationsWereMet())

	assert.Equal(t, "r1", got.UID)
	assert.Equal(t, checksum.Bytes([]byte("hello")), got.Checksum)

	row := h.repos.log.only(t)
	assert.NotEqual(t, "r1", row.UID)
	assert.Equal(t, smodels.SyncStatusDone, row.Status)
	assert.Equal(t, row.UID, got.SyncUID)

	rel := pathresolver.Resolve(pathresolver.DefaultPattern, got, row.UID, h.engine.now())
	archived, err := os.ReadFile(filepath.Join(h.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(archived))
	assert.Equal(t, rel, h.repos.bins.rows["r1"].ArchivePath)

	rc, rec, err := h.engine.Content(context.Background(), "r1")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, got.Checksum, checksum.Bytes(b))
	assert.Equal(t, "r1", rec.UID)

	_, err = os.Stat(staged)
	assert.NoError(t, err, "staged source must be copied, not moved")
	assert.Empty(t, h.alerts.msgs)
}

func TestSync_ChecksumMismatch(t *testing.T) {
	h := newHarness(t)
	before := &smodels.Binary{
		Record:     models.BinaryRecord{UID: "r1", Checksum: "old", SyncUID: "s0"},
		StorageKey: blobstore.Key("r1", "s0"),
	}
	h.repos.bins.rows["r1"] = before
	h.expectLogged()
	h.expectFailed()

	_, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action:      "upload",
		Checksum:    "deadbeef",
		Record:      &models.BinaryRecord{UID: "r1"},
		ContentPath: stage(t, "hello"),
	})
	require.ErrorIs(t, err, common.ErrIntegrity)
	require.NoError(t, h.mock.ExpectationsWereMet())

	row := h.repos.log.only(t)
	assert.Equal(t, smodels.SyncStatusError, row.Status)
	assert.Contains(t, row.ErrorMsg, "checksum mismatch")
	assert.Same(t, before, h.repos.bins.rows["r1"])

	require.Len(t, h.alerts.msgs, 1)
	assert.Contains(t, h.alerts.msgs[0], "r1")

	assert.Empty(t, h.blobFiles(t, "r1"))
}

func TestSync_ValidationWritesNothing(t *testing.T) {
	cases := map[string]*SyncRequest{
		"nil":         nil,
		"no action":   {Checksum: "c", Record: &models.BinaryRecord{UID: "r"}},
		"no checksum": {Action: "upload", Record: &models.BinaryRecord{UID: "r"}, ContentPath: "x"},
		"no record":   {Action: "upload", Checksum: "c", ContentPath: "x"},
		"no uid":      {Action: "upload", Checksum: "c", Record: &models.BinaryRecord{}, ContentPath: "x"},
		"no contents": {Action: "upload_new", Checksum: "c", Record: &models.BinaryRecord{UID: "r"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.engine.Sync(context.Background(), req)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, h.repos.log.rows)
			require.NoError(t, h.mock.ExpectationsWereMet())
		})
	}
}

func TestSync_MetadataOnlyReturnsRecordUnchanged(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.expectDone()

	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	in := &models.BinaryRecord{UID: "r1", Filename: "a.txt", CreationDatetime: created}
	got, err := h.engine.Sync(context.Background(), &SyncRequest{Action: "delete", Checksum: "c", Record: in})
	require.NoError(t, err)

	assert.Equal(t, in, got)
	assert.NotSame(t, in, got)
	assert.Equal(t, smodels.SyncStatusDone, h.repos.log.only(t).Status)
	assert.Empty(t, h.repos.bins.rows)
}

func TestSync_DefaultsCreationDatetime(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.expectDone()

	got, err := h.engine.Sync(context.Background(), &SyncRequest{Action: "touch", Checksum: "c", Record: &models.BinaryRecord{UID: "r1"}})
	require.NoError(t, err)
	assert.Equal(t, h.engine.now(), got.CreationDatetime)
}

func TestSync_NonUploadWithContentVerifiesOnly(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.expectDone()

	_, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action:      "download",
		Checksum:    checksum.Bytes([]byte("abc")),
		Record:      &models.BinaryRecord{UID: "r1", TableName: "t"},
		ContentPath: stage(t, "abc"),
	})
	require.NoError(t, err)
	assert.Empty(t, h.repos.bins.rows)
	entries, err := os.ReadDir(filepath.Join(h.root, "t"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSync_BeginFailureLogsNothing(t *testing.T) {
	h := newHarness(t)
	h.mock.ExpectBegin().WillReturnError(errors.New("db down"))

	_, err := h.engine.Sync(context.Background(), &SyncRequest{Action: "touch", Checksum: "c", Record: &models.BinaryRecord{UID: "r1"}})
	assert.ErrorIs(t, err, common.ErrTransaction)
	assert.ErrorIs(t, err, ErrNotLogged)
	assert.Empty(t, h.repos.log.rows)
}

func TestSync_InsertFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.repos.log.insertErr = errors.New("duplicate key")
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()

	_, err := h.engine.Sync(context.Background(), &SyncRequest{Action: "touch", Checksum: "c", Record: &models.BinaryRecord{UID: "r1"}})
	assert.ErrorIs(t, err, common.ErrTransaction)
	assert.ErrorIs(t, err, ErrNotLogged)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestSync_UpsertFailureRecordedAsError(t *testing.T) {
	h := newHarness(t)
	h.repos.bins.upsertErr = errors.New("constraint violated")
	h.expectLogged()
	h.expectFailed()

	_, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action:      "upload",
		Checksum:    checksum.Bytes([]byte("x")),
		Record:      &models.BinaryRecord{UID: "r1"},
		ContentPath: stage(t, "x"),
	})
	assert.ErrorContains(t, err, "constraint violated")
	assert.Equal(t, smodels.SyncStatusError, h.repos.log.only(t).Status)
	assert.Empty(t, h.blobFiles(t, "r1"), "blob of a failed attempt must not outlive it")
}

func TestSync_FinalizeFailureDropsWrittenBlob(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.mock.ExpectBegin()
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action: "upload", Checksum: checksum.Bytes([]byte("x")),
		Record: &models.BinaryRecord{UID: "r1"}, ContentPath: stage(t, "x"),
	})
	assert.ErrorIs(t, err, common.ErrTransaction)
	assert.NotErrorIs(t, err, ErrNotLogged)
	assert.Empty(t, h.blobFiles(t, "r1"))
}

type hookedBlobs struct {
	blobstore.Store
	beforePut func()
}

func (h *hookedBlobs) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if f := h.beforePut; f != nil {
		h.beforePut = nil
		f()
	}
	return h.Store.Put(ctx, key, r, size)
}

func TestSync_InterleavedUploadsOfOneRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A is logged and enters its apply step, then B runs to completion
	// before A writes its blob.
	h.expectLogged()
	h.mock.ExpectBegin()
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.expectLogged()
	h.expectDone()
	h.mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectCommit()

	var recB *models.BinaryRecord
	h.engine.blobs = &hookedBlobs{Store: h.blobs, beforePut: func() {
		var err error
		recB, err = h.engine.Sync(ctx, &SyncRequest{
			Action: "upload", Checksum: checksum.Bytes([]byte("BBB")),
			Record: &models.BinaryRecord{UID: "r1"}, ContentPath: stage(t, "BBB"),
		})
		require.NoError(t, err)
	}}

	recA, err := h.engine.Sync(ctx, &SyncRequest{
		Action: "upload", Checksum: checksum.Bytes([]byte("AAA")),
		Record: &models.BinaryRecord{UID: "r1"}, ContentPath: stage(t, "AAA"),
	})
	require.NoError(t, err)
	require.NotNil(t, recB)
	require.NoError(t, h.mock.ExpectationsWereMet())

	rc, rec, err := h.engine.Content(ctx, "r1")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Equal(t, recA.SyncUID, rec.SyncUID)
	assert.Equal(t, "AAA", string(b))
	assert.Equal(t, rec.Checksum, checksum.Bytes(b))

	assert.Equal(t, []string{recA.SyncUID}, h.blobFiles(t, "r1"))
	_, err = h.blobs.Open(ctx, blobstore.Key("r1", recB.SyncUID))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

type droppingBlobs struct {
	blobstore.Store
	onOpen func()
}

func (d *droppingBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if f := d.onOpen; f != nil {
		d.onOpen = nil
		f()
	}
	return d.Store.Open(ctx, key)
}

func TestContent_FollowsNewerCommit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.blobs.Put(ctx, blobstore.Key("r1", "s2"), strings.NewReader("new"), 3))
	h.repos.bins.rows["r1"] = &smodels.Binary{
		Record:     models.BinaryRecord{UID: "r1", SyncUID: "s1"},
		StorageKey: blobstore.Key("r1", "s1"),
	}
	h.engine.blobs = &droppingBlobs{Store: h.blobs, onOpen: func() {
		h.repos.bins.rows["r1"] = &smodels.Binary{
			Record:     models.BinaryRecord{UID: "r1", SyncUID: "s2"},
			StorageKey: blobstore.Key("r1", "s2"),
		}
	}}

	rc, rec, err := h.engine.Content(ctx, "r1")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "new", string(b))
	assert.Equal(t, "s2", rec.SyncUID)

	h.repos.bins.rows["r2"] = &smodels.Binary{Record: models.BinaryRecord{UID: "r2"}, StorageKey: blobstore.Key("r2", "s1")}
	_, _, err = h.engine.Content(ctx, "r2")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSync_AlertFailureStillCommitsError(t *testing.T) {
	h := newHarness(t)
	h.alerts.err = errors.New("alerts table locked")
	h.expectLogged()
	h.mock.ExpectBegin()
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT apply")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT alert")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT alert")).WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectCommit()

	_, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action: "upload", Checksum: "bad", Record: &models.BinaryRecord{UID: "r1"}, ContentPath: stage(t, "x"),
	})
	assert.ErrorIs(t, err, common.ErrIntegrity)
	require.NoError(t, h.mock.ExpectationsWereMet())
	assert.Equal(t, smodels.SyncStatusError, h.repos.log.only(t).Status)
}

type cancelOnLogged struct {
	logging.Logger
	cancel context.CancelFunc
}

func (c *cancelOnLogged) With(...any) logging.Logger { return c }

func (c *cancelOnLogged) Debug(_ context.Context, msg string, _ ...any) {
	if msg == "sync attempt logged" {
		c.cancel()
	}
}

func TestSync_CancelledCallerStillFinishes(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.expectDone()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.engine.logger = &cancelOnLogged{Logger: logging.Nop(), cancel: cancel}

	got, err := h.engine.Sync(ctx, &SyncRequest{
		Action: "upload", Checksum: checksum.Bytes([]byte("payload")),
		Record: &models.BinaryRecord{UID: "r1"}, ContentPath: stage(t, "payload"),
	})
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, "r1", got.UID)
	assert.Equal(t, smodels.SyncStatusDone, h.repos.log.only(t).Status)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestSync_DistinctAttemptUIDs(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.expectLogged()
		h.expectDone()
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		content := fmt.Sprintf("v%d", i)
		got, err := h.engine.Sync(context.Background(), &SyncRequest{
			Action: "upload", Checksum: checksum.Bytes([]byte(content)),
			Record: &models.BinaryRecord{UID: "r1"}, ContentPath: stage(t, content),
		})
		require.NoError(t, err)
		assert.False(t, seen[got.SyncUID])
		seen[got.SyncUID] = true
	}

	dateDir := filepath.Join(h.root, pathresolver.NoTable, "2024-03-15")
	entries, err := os.ReadDir(dateDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	rc, _, err := h.engine.Content(context.Background(), "r1")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "v2", string(b))
	assert.Len(t, h.blobFiles(t, "r1"), 1, "superseded blobs are dropped")
}

func TestSync_SniffsMimeType(t *testing.T) {
	h := newHarness(t)
	h.expectLogged()
	h.expectDone()

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16)
	got, err := h.engine.Sync(context.Background(), &SyncRequest{
		Action: "upload", Checksum: checksum.Bytes([]byte(png)),
		Record: &models.BinaryRecord{UID: "img"}, ContentPath: stage(t, png),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MimeType)
}

func TestRecordAndStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.Record(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	h.repos.bins.rows["r1"] = &smodels.Binary{Record: models.BinaryRecord{UID: "r1", Checksum: "c"}}
	rec, err := h.engine.Record(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "c", rec.Checksum)

	h.repos.log.rows["s1"] = &smodels.SyncLogEntry{UID: "s1", BinaryUID: "r1", Status: smodels.SyncStatusTodo,
		SyncDate: h.engine.now().Add(-time.Hour)}
	stale, err := h.engine.StaleAttempts(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "s1", stale[0].UID)
}

func TestNewSyncEngine_RequiresStorage(t *testing.T) {
	_, err := NewSyncEngine(nil, nil, nil, nil, EngineConfig{}, logging.Nop())
	assert.ErrorIs(t, err, common.ErrConfig)
}
