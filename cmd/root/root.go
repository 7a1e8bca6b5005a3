// Package root contains the root command for the application.
package root

import (
	"github.com/spf13/cobra"

	"sellout-ingest/internal/config"
	"sellout-ingest/internal/logging"
)

var (
	// Log is the shared logger instance for commands.
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cfg is the loaded application configuration, available to
	// subcommands after PersistentPreRunE.
	Cfg *config.Config

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "sellout-ingest",
		Short: "Ingest reseller sell-out spreadsheets into canonical sales records.",
		Long: `sellout-ingest converts heterogeneous reseller spreadsheet exports into a
single canonical sales-record schema, driven by declarative per-partner
vendor profiles. Adding a partner means adding a profile document, not code.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to sellout-ingest!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			cfg, err := config.InitializeConfig()
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
)
