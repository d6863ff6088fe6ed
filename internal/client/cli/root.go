package cli

import (
	"github.com/dmitrijs2005/binsync/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the binsync client command tree.
func NewRootCommand() *cobra.Command {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	app := newApp(cfg)
	cmd := newRootCommand(app, app.init)
	config.BindFlags(cmd.PersistentFlags(), cfg)
	return cmd
}

func newRootCommand(app *App, setup func(cmd *cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "binsync",
		Short:         "Offline binary cache with server sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	cmd.AddCommand(newAddCommand(app))
	cmd.AddCommand(newUpdateCommand(app))
	cmd.AddCommand(newInfoCommand(app))
	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newOpenCommand(app))
	cmd.AddCommand(newEvictCommand(app))
	cmd.AddCommand(newSyncCommand(app))
	cmd.AddCommand(newPullCommand(app))
	cmd.AddCommand(newWatchCommand(app))

	return cmd
}
