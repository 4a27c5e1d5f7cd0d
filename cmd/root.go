// Package cmd implements the command-line interface for crawlcore.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arlobridge/crawlcore/cmd/crawl"
	"github.com/arlobridge/crawlcore/cmd/parse"
	"github.com/arlobridge/crawlcore/cmd/status"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "crawlcore",
	Short: "A polite, high-throughput, single-machine web crawler",
	Long: `crawlcore coordinates a Fetcher Worker pool and a Parser Consumer
pool through a shared coordination store to crawl a seed list politely
and resumably.`,
	RunE: func(c *cobra.Command, args []string) error {
		return c.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(c *cobra.Command, args []string) {
			fmt.Println("crawlcore version 0.1.0")
		},
	})

	rootCmd.AddCommand(crawl.Command(&cfgFile))
	rootCmd.AddCommand(parse.Command(&cfgFile))
	rootCmd.AddCommand(status.Command(&cfgFile))
}
