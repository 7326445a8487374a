package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"starmap-server/internal/shared/config"
	"starmap-server/internal/shared/logger"
)

// cli carries what every subcommand needs once the root has loaded the
// environment.
type cli struct {
	cfg      *config.Config
	logger   *slog.Logger
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "xref",
		Short:         "Resolve SAO catalog numbers and manage cross-match data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newResolveCmd(c),
		newLoadCatalogCmd(c),
		newImportCmd(c),
		newStatsCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) init() error {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	c.cfg = cfg
	// Reports go to stdout, logs stay on stderr.
	c.logger = logger.New(os.Stderr, cfg.Logging)
	slog.SetDefault(c.logger)
	return nil
}
