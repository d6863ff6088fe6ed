package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOpenCommand(app *App) *cobra.Command {
	var name, dir string

	cmd := &cobra.Command{
		Use:   "open <uid>",
		Short: "Write the cached blob of a record to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.binaries.Open(cmd.Context(), args[0], name, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "output filename (defaults to the record's filename)")
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")

	return cmd
}

func newEvictCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <uid>",
		Short: "Drop a record from the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.binaries.Evict(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s evicted\n", args[0])
			return nil
		},
	}
}
