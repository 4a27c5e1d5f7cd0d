// Package parse implements the parse subcommand: a standalone Parser
// Consumer process. The Orchestrator re-execs the crawlcore binary with
// this subcommand once per configured parser process (spec §4.5).
package parse

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arlobridge/crawlcore/internal/config"
	"github.com/arlobridge/crawlcore/internal/contentstore"
	"github.com/arlobridge/crawlcore/internal/fetcher"
	"github.com/arlobridge/crawlcore/internal/frontier"
	"github.com/arlobridge/crawlcore/internal/logger"
	"github.com/arlobridge/crawlcore/internal/parser"
	"github.com/arlobridge/crawlcore/internal/politeness"
	"github.com/arlobridge/crawlcore/internal/runstate"
	"github.com/arlobridge/crawlcore/internal/store"
)

// Command returns the parse command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:    "parse",
		Short:  "Run a standalone Parser Consumer process",
		Hidden: true,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("parse: load config: %w", err)
			}

			log, err := logger.New(&logger.Config{
				Level:    logger.Level(cfg.Logging.Level),
				Encoding: cfg.Logging.Encoding,
			})
			if err != nil {
				return fmt.Errorf("parse: init logger: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, err := store.New(store.Config{Host: cfg.CSHost, Port: cfg.CSPort, DB: cfg.CSDB, Password: cfg.CSPassword})
			if err != nil {
				return fmt.Errorf("parse: connect to coordination store: %w", err)
			}
			defer s.Close()

			httpFetcher := fetcher.NewHTTPFetcher(fetcher.ClientConfig{
				UserAgent:      cfg.UserAgent(),
				RequestTimeout: cfg.RequestTimeout,
			})

			pe, err := politeness.New(s, httpFetcher, log, politeness.Config{
				UserAgent:      cfg.UserAgent(),
				SeededURLsOnly: cfg.SeededURLsOnly,
			})
			if err != nil {
				return fmt.Errorf("parse: init politeness enforcer: %w", err)
			}

			fm := frontier.New(s, pe, log, frontier.Config{
				DataDir:         cfg.DataDir,
				SeenSetCapacity: cfg.SeenSetCapacity,
				SeenSetFPR:      cfg.SeenSetFPR,
			})
			// A parser process never initiates a crawl; it only ever joins
			// state a sibling crawl command already created.
			if err := fm.Initialize(ctx, true); err != nil {
				return fmt.Errorf("parse: init frontier manager: %w", err)
			}

			cs := contentstore.New(cfg.DataDir)
			run := runstate.New(cfg.MaxPages, cfg.MaxDuration)

			consumer := parser.NewConsumer(s, cs, s, fm, log, run, parser.ConsumerConfig{
				TaskCount: cfg.ParserTaskCount(),
			})

			consumer.Run(ctx)
			return nil
		},
	}
}
