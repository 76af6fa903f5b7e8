package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/config"
)

var (
	configPath string
	cfg        config.Config
)

// Execute builds the command tree and runs it.
func Execute() error {
	root := &cobra.Command{
		Use:           "wasteboard",
		Short:         "Waste bank dashboard server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			slog.SetDefault(newLogger(cfg))
			html.CurrencySymbol = cfg.Currency.Symbol
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config.yaml file or directory (default: working directory)")

	root.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd(), seedDemoCmd())
	return root.Execute()
}

func newLogger(c config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
