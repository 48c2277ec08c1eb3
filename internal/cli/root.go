package cli

import (
	"github.com/spf13/cobra"

	"github.com/rl1809/shopping-list/internal/app"
	"github.com/rl1809/shopping-list/internal/config"
)

const DefaultDBFile = "shopping-list.sqlite3"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBFile     string
	Verbose    bool
}

// NewRootCommand creates the root command of slistctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "slistctl",
		Short: "Administer a shared shopping list",
		Long: `Administer the shopping list ledger directly against its database.

Without --config the SQLite file given by --dbfile is used. With --config the
configured database is used unless --dbfile is passed explicitly. SLIST_*
environment variables override the configuration as they do for the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file")
	cmd.PersistentFlags().StringVarP(&opts.DBFile, "dbfile", "d", DefaultDBFile, "SQLite database file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	if o.ConfigPath == "" || cmd.Flags().Changed("dbfile") {
		installDir, err := config.InstallDir()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load configuration", err)
		}
		path, err := config.ExpandPath(o.DBFile, installDir)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load configuration", err)
		}
		cfg.Database.Driver = "sqlite3"
		cfg.Database.DSN = path
	}
	return cfg, nil
}

func (o *RootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	return a, nil
}
