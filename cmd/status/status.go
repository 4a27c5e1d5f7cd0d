// Package status implements the status subcommand: a quick, read-only
// snapshot of coordination-store queue depths for an in-progress or
// completed crawl.
package status

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/arlobridge/crawlcore/internal/config"
	"github.com/arlobridge/crawlcore/internal/store"
)

// Command returns the status command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a snapshot of the coordination store's queue depths",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("status: load config: %w", err)
			}

			s, err := store.New(store.Config{Host: cfg.CSHost, Port: cfg.CSPort, DB: cfg.CSDB, Password: cfg.CSPassword})
			if err != nil {
				return fmt.Errorf("status: connect to coordination store: %w", err)
			}
			defer s.Close()

			ctx := context.Background()
			matched, stored, err := s.VerifySchema(ctx)
			if err != nil {
				return fmt.Errorf("status: verify schema: %w", err)
			}

			domainQueueLen, err := s.Len(ctx, store.DomainReadyQueueKey)
			if err != nil {
				return fmt.Errorf("status: read domain queue depth: %w", err)
			}
			handoffQueueLen, err := s.Len(ctx, store.FetchHandoffKey)
			if err != nil {
				return fmt.Errorf("status: read handoff queue depth: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"field", "value"})
			t.AppendRow(table.Row{"schema version", stored})
			t.AppendRow(table.Row{"schema matched", matched})
			t.AppendRow(table.Row{"domain-ready queue depth", domainQueueLen})
			t.AppendRow(table.Row{"fetch handoff queue depth", handoffQueueLen})
			t.Render()

			return nil
		},
	}
}
