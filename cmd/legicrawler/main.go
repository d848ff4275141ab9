package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AnabVangun/publicLegiCrawler/internal/app"
	"github.com/AnabVangun/publicLegiCrawler/internal/config"
	"github.com/AnabVangun/publicLegiCrawler/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "legicrawler",
		Short: "Crawl Légifrance for tableaux d'avancement and store them in Postgres",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.AddCommand(newInitDBCmd(), newRunCmd())
	return root
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the storage schema (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level)

			if err := app.New(cfg, logger).InitDB(cmd.Context()); err != nil {
				return fmt.Errorf("init db: %w", err)
			}
			logger.Info("schema initialized")
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [job...]",
		Short: "Crawl the given jobs (all configured jobs when none given) and exit on full drain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level)

			if err := app.New(cfg, logger).Run(cmd.Context(), args); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}
}
