package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/binsync/internal/client/client"
	"github.com/dmitrijs2005/binsync/internal/client/config"
	"github.com/dmitrijs2005/binsync/internal/client/services"
	"github.com/dmitrijs2005/binsync/internal/client/store"
	"github.com/dmitrijs2005/binsync/internal/cryptox"
	"github.com/dmitrijs2005/binsync/internal/logging"
	"github.com/spf13/cobra"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds one online check.
const pingTimeout = 3 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	binaries services.BinaryService
	pinger   client.Pinger
	reader   *bufio.Reader

	mu   sync.Mutex
	Mode Mode
}

func newApp(c *config.Config) *App {
	return &App{config: c, logger: logging.Nop(), reader: bufio.NewReader(os.Stdin), Mode: ModeOffline}
}

// init loads the configuration and opens the cache. It runs before every
// command.
func (a *App) init(cmd *cobra.Command) (err error) {
	if err := config.Load(a.config, cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	a.logger = logging.New(logging.Options{Output: cmd.ErrOrStderr(), File: a.config.LogFile, Debug: a.config.Debug})

	ctx := cmd.Context()
	db, err := client.InitDatabase(ctx, a.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	a.db = db
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var opts []store.Option
	if a.config.EncryptCache {
		sealer, err := a.sealer(ctx, cmd)
		if err != nil {
			return err
		}
		opts = append(opts, store.WithSealer(sealer))
	}

	st := store.New(db, a.config.KeyPrefix, opts...)
	api := client.NewHTTPClient(a.config.ServerURL, a.config.AccessToken, 0)
	a.binaries = services.NewBinaryService(st, api, services.SyncConfig{Parallelism: a.config.Parallelism}, a.logger)

	pinger, err := client.NewGRPCClient(a.config.GRPCAddr)
	if err != nil {
		return err
	}
	a.pinger = pinger
	return nil
}

func (a *App) sealer(ctx context.Context, cmd *cobra.Command) (cryptox.Sealer, error) {
	pass, err := GetPassword(cmd.ErrOrStderr(), a.reader)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	defer cryptox.Wipe(pass)
	if len(pass) == 0 {
		return nil, errors.New("empty passphrase")
	}

	salt, err := store.Salt(ctx, a.db, a.config.KeyPrefix)
	if err != nil {
		return nil, err
	}
	return cryptox.NewPassphraseSealer(pass, salt)
}

// Close releases what init opened.
func (a *App) Close() error {
	var errs []error
	if a.pinger != nil {
		errs = append(errs, a.pinger.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(ctx, "switched mode", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}
