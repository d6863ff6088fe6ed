package cli

import (
	"fmt"

	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/spf13/cobra"
)

func newAddCommand(app *App) *cobra.Command {
	rec := &models.BinaryRecord{}

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Cache a file as a new binary record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := app.binaries.Add(cmd.Context(), args[0], rec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), saved.UID)
			return nil
		},
	}

	cmd.Flags().StringVar(&rec.UID, "uid", "", "record uid (generated when empty)")
	cmd.Flags().StringVar(&rec.TableName, "table", "", "owning table name")
	cmd.Flags().StringVar(&rec.TableUID, "table-uid", "", "owning record uid")
	cmd.Flags().StringVar(&rec.Filename, "name", "", "filename to record (defaults to the file's base name)")
	cmd.Flags().StringVar(&rec.MimeType, "mime", "", "mime type hint")

	return cmd
}

func newUpdateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update <uid> <file>",
		Short: "Replace the cached content of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.binaries.Update(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated, pending sync\n", args[0])
			return nil
		},
	}
}
