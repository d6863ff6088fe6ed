package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync pending records whenever the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.StartOnlineStatusWatcher(cmd.Context(), app.config.OnlineCheckInterval, cmd.OutOrStdout())
			return nil
		},
	}
}

// StartOnlineStatusWatcher probes the server every interval until ctx ends.
// While online it syncs pending records on each tick.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration, w io.Writer) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.checkAndSync(ctx, w)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkAndSync(ctx context.Context, w io.Writer) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.pinger.Ping(pingCtx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		a.logger.Debug(ctx, "server unreachable", "error", err)
		return
	}

	a.setMode(ctx, ModeOnline)
	if _, err := a.syncAll(ctx, w); err != nil && ctx.Err() == nil {
		a.logger.Warn(ctx, "sync failed", "error", err)
	}
}
