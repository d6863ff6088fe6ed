package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/binsync/internal/client/client"
	"github.com/dmitrijs2005/binsync/internal/client/config"
	"github.com/dmitrijs2005/binsync/internal/client/services"
	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBinaries struct {
	services.BinaryService

	added     *models.BinaryRecord
	addedPath string
	infos     []*services.LocalInfo
	results   []services.SyncResult
	syncCalls atomic.Int32
	err       error
}

func (f *fakeBinaries) Add(_ context.Context, path string, rec *models.BinaryRecord) (*models.BinaryRecord, error) {
	f.added, f.addedPath = rec.Clone(), path
	out := rec.Clone()
	if out.UID == "" {
		out.UID = "generated"
	}
	return out, f.err
}

func (f *fakeBinaries) Update(_ context.Context, uid, _ string) (*models.BinaryRecord, error) {
	return &models.BinaryRecord{UID: uid}, f.err
}

func (f *fakeBinaries) Info(_ context.Context, uid string) (*services.LocalInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.LocalInfo{Record: &models.BinaryRecord{UID: uid, Filename: "a.txt", Checksum: "old"}, Checksum: "new", Size: 3, Pending: true}, nil
}

func (f *fakeBinaries) List(context.Context) ([]*services.LocalInfo, error) {
	return f.infos, f.err
}

func (f *fakeBinaries) Open(_ context.Context, uid, filename, dir string) (string, error) {
	return filepath.Join(dir, filename+uid), f.err
}

func (f *fakeBinaries) Evict(context.Context, string) error { return f.err }

func (f *fakeBinaries) Upload(_ context.Context, uid string) (*models.BinaryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.BinaryRecord{UID: uid, SyncUID: "s1"}, nil
}

func (f *fakeBinaries) SyncAll(context.Context) ([]services.SyncResult, error) {
	f.syncCalls.Add(1)
	return f.results, f.err
}

func (f *fakeBinaries) Pull(_ context.Context, uid string) (*models.BinaryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.BinaryRecord{UID: uid, Checksum: "c"}, nil
}

type fakePinger struct {
	up     atomic.Bool
	closed bool
}

func (p *fakePinger) Ping(context.Context) error {
	if p.up.Load() {
		return nil
	}
	return client.ErrUnavailable
}

func (p *fakePinger) Close() error { p.closed = true; return nil }

func testApp(b *fakeBinaries) *App {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	a := newApp(cfg)
	a.binaries = b
	a.pinger = &fakePinger{}
	return a
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(app, func(*cobra.Command) error { return nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddCommand_PassesFlags(t *testing.T) {
	f := &fakeBinaries{}
	out, err := run(t, testApp(f), "add", "/tmp/x.bin", "--table", "docs", "--table-uid", "d1")
	require.NoError(t, err)

	assert.Equal(t, "generated\n", out)
	assert.Equal(t, "/tmp/x.bin", f.addedPath)
	assert.Equal(t, &models.BinaryRecord{TableName: "docs", TableUID: "d1"}, f.added)
}

func TestCommands_RequireArgs(t *testing.T) {
	for _, args := range [][]string{{"add"}, {"update", "u1"}, {"info"}, {"open"}, {"evict"}, {"pull"}, {"sync", "a", "b"}, {"list", "x"}} {
		_, err := run(t, testApp(&fakeBinaries{}), args...)
		assert.Error(t, err, args)
	}
}

func TestInfoCommand(t *testing.T) {
	out, err := run(t, testApp(&fakeBinaries{}), "info", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "uid:        u1")
	assert.Contains(t, out, "local sum:  new")
	assert.Contains(t, out, "synced sum: old")
	assert.Contains(t, out, "pending:    true")
}

func TestInfoCommand_Error(t *testing.T) {
	_, err := run(t, testApp(&fakeBinaries{err: common.ErrNotFound}), "info", "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListCommand(t *testing.T) {
	f := &fakeBinaries{infos: []*services.LocalInfo{
		{Record: &models.BinaryRecord{UID: "u1", Filename: "a.txt"}, Size: 3, Pending: true},
		{Record: &models.BinaryRecord{UID: "u2", Filename: "b.txt"}, Size: 5},
	}}
	out, err := run(t, testApp(f), "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "u1")
	assert.Contains(t, lines[1], "pending")
	assert.Contains(t, lines[2], "synced")
}

func TestOpenUpdateEvictPull(t *testing.T) {
	app := testApp(&fakeBinaries{})

	out, err := run(t, app, "open", "u1", "--dir", "/out", "--name", "n-")
	require.NoError(t, err)
	assert.Equal(t, "/out/n-u1\n", out)

	out, err = run(t, app, "update", "u1", "/tmp/f")
	require.NoError(t, err)
	assert.Contains(t, out, "u1 updated")

	out, err = run(t, app, "evict", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1 evicted\n", out)

	out, err = run(t, app, "pull", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1 pulled (c)\n", out)
}

func TestSyncCommand_Single(t *testing.T) {
	out, err := run(t, testApp(&fakeBinaries{}), "sync", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1 synced (s1)\n", out)
}

func TestSyncCommand_AllReportsFailures(t *testing.T) {
	f := &fakeBinaries{results: []services.SyncResult{
		{UID: "u1", Record: &models.BinaryRecord{UID: "u1", SyncUID: "s1"}},
		{UID: "u2", Err: errors.New("rejected")},
	}}
	out, err := run(t, testApp(f), "sync")
	assert.ErrorContains(t, err, "1 of 2 records failed")
	assert.Contains(t, out, "u1 synced (s1)")
	assert.Contains(t, out, "u2 failed: rejected")
}

func TestSyncCommand_Nothing(t *testing.T) {
	out, err := run(t, testApp(&fakeBinaries{}), "sync")
	require.NoError(t, err)
	assert.Equal(t, "nothing to sync\n", out)
}

func TestPostRunClosesPinger(t *testing.T) {
	app := testApp(&fakeBinaries{})
	_, err := run(t, app, "list")
	require.NoError(t, err)
	assert.True(t, app.pinger.(*fakePinger).closed)
}

func TestWatcher_SyncsOnlyWhileOnline(t *testing.T) {
	f := &fakeBinaries{}
	app := testApp(f)
	p := app.pinger.(*fakePinger)

	var out bytes.Buffer
	app.checkAndSync(context.Background(), &out)
	assert.Equal(t, ModeOffline, app.mode())
	assert.Equal(t, int32(0), f.syncCalls.Load())

	p.up.Store(true)
	app.checkAndSync(context.Background(), &out)
	assert.Equal(t, ModeOnline, app.mode())
	assert.Equal(t, int32(1), f.syncCalls.Load())

	p.up.Store(false)
	app.checkAndSync(context.Background(), &out)
	assert.Equal(t, ModeOffline, app.mode())
	assert.Equal(t, int32(1), f.syncCalls.Load())
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	f := &fakeBinaries{}
	app := testApp(f)
	app.pinger.(*fakePinger).up.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.StartOnlineStatusWatcher(ctx, 5*time.Millisecond, &bytes.Buffer{})
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.syncCalls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestGetPassword_NonTerminalReadsLine(t *testing.T) {
	old := isTerminal
	t.Cleanup(func() { isTerminal = old })
	isTerminal = func(int) bool { return false }

	var out bytes.Buffer
	pw, err := GetPassword(&out, bufio.NewReader(strings.NewReader("s3cret\n")))
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Equal(t, "Cache passphrase: ", out.String())
}

func TestGetPassword_TerminalUsesReadPassword(t *testing.T) {
	oldTerm, oldRead := isTerminal, readPassword
	t.Cleanup(func() { isTerminal, readPassword = oldTerm, oldRead })
	isTerminal = func(int) bool { return true }

	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(&out, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("pw"), pw)

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword(&out, nil)
	assert.ErrorContains(t, err, "boom")
}

func TestGetSimpleText_EOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("lastline")), "> ", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "> ", &out)
	assert.Error(t, err)
}

func runReal(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	app := newApp(cfg)
	app.reader = bufio.NewReader(strings.NewReader(stdin))

	cmd := newRootCommand(app, app.init)
	config.BindFlags(cmd.PersistentFlags(), cfg)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEndToEnd_LocalCommands(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")
	src := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))

	out, err := runReal(t, "", "-d", db, "add", src, "--uid", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1\n", out)

	out, err = runReal(t, "", "-d", db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "hello.txt")
	assert.Contains(t, out, "pending")

	out, err = runReal(t, "", "-d", db, "open", "u1", "--dir", dir, "--name", "copy.txt")
	require.NoError(t, err)
	b, err := os.ReadFile(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestEndToEnd_EncryptedCache(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	old := isTerminal
	t.Cleanup(func() { isTerminal = old })
	isTerminal = func(int) bool { return false }

	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")
	src := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(src, []byte("secret"), 0o600))

	_, err := runReal(t, "pw\n", "-d", db, "-e", "add", src, "--uid", "u1")
	require.NoError(t, err)

	out, err := runReal(t, "pw\n", "-d", db, "-e", "info", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "size:       6")

	_, err = runReal(t, "wrong\n", "-d", db, "-e", "info", "u1")
	assert.ErrorContains(t, err, "open sealed blob")

	_, err = runReal(t, "\n", "-d", db, "-e", "info", "u1")
	assert.ErrorContains(t, err, "empty passphrase")
}

func TestEndToEnd_ConfigError(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	_, err := runReal(t, "", "-w", "0", "list")
	assert.ErrorIs(t, err, common.ErrConfig)
}
