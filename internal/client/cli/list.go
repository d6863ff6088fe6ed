package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/binsync/internal/client/services"
	"github.com/spf13/cobra"
)

func newInfoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <uid>",
		Short: "Show a cached record and its local checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := app.binaries.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func printInfo(w io.Writer, info *services.LocalInfo) {
	r := info.Record
	fmt.Fprintf(w, "uid:        %s\n", r.UID)
	fmt.Fprintf(w, "table:      %s %s\n", r.TableName, r.TableUID)
	fmt.Fprintf(w, "filename:   %s\n", r.Filename)
	fmt.Fprintf(w, "mime type:  %s\n", r.MimeType)
	if !r.CreationDatetime.IsZero() {
		fmt.Fprintf(w, "created:    %s\n", r.CreationDatetime.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "size:       %d\n", info.Size)
	fmt.Fprintf(w, "local sum:  %s\n", info.Checksum)
	fmt.Fprintf(w, "synced sum: %s\n", r.Checksum)
	fmt.Fprintf(w, "sync uid:   %s\n", r.SyncUID)
	fmt.Fprintf(w, "pending:    %t\n", info.Pending)
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := app.binaries.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UID\tFILENAME\tSIZE\tSTATE")
			for _, info := range infos {
				state := "synced"
				if info.Pending {
					state = "pending"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", info.Record.UID, info.Record.Filename, info.Size, state)
			}
			return tw.Flush()
		},
	}
}
