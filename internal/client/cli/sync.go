package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSyncCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [uid]",
		Short: "Upload pending records to the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rec, err := app.binaries.Upload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s synced (%s)\n", rec.UID, rec.SyncUID)
				return nil
			}
			n, err := app.syncAll(cmd.Context(), cmd.OutOrStdout())
			if err == nil && n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to sync")
			}
			return err
		},
	}
}

// syncAll uploads every pending record, reports each outcome to w and fails
// when any of them failed. It returns the number of records attempted.
func (a *App) syncAll(ctx context.Context, w io.Writer) (int, error) {
	results, err := a.binaries.SyncAll(ctx)
	if err != nil {
		return len(results), err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s failed: %v\n", r.UID, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s synced (%s)\n", r.UID, r.Record.SyncUID)
	}
	if failed > 0 {
		return len(results), fmt.Errorf("%d of %d records failed to sync", failed, len(results))
	}
	return len(results), nil
}

func newPullCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <uid>",
		Short: "Download the canonical content of a record into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := app.binaries.Pull(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s pulled (%s)\n", rec.UID, rec.Checksum)
			return nil
		},
	}
}
