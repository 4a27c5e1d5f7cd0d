// Package crawl implements the crawl subcommand, which starts the
// Orchestrator and blocks until the crawl stops.
package crawl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arlobridge/crawlcore/internal/config"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/orchestrator"
)

// Command returns the crawl command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Start a crawl run",
		Long: `Starts the Orchestrator: connects to the coordination store, initializes
the Politeness Enforcer and Frontier Manager, spawns the Fetcher Worker
pool and Parser Consumer processes, and runs until a stop condition is
reached or an interrupt signal is received.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("crawl: load config: %w", err)
			}

			log, err := logger.New(&logger.Config{
				Level:    logger.Level(cfg.Logging.Level),
				Encoding: cfg.Logging.Encoding,
			})
			if err != nil {
				return fmt.Errorf("crawl: init logger: %w", err)
			}

			ctx := c.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			or, err := orchestrator.New(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("crawl: init orchestrator: %w", err)
			}

			return or.Run(ctx)
		},
	}
}
