package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/palliser-group/agcensus-cli/internal/fetcher"
	"github.com/palliser-group/agcensus-cli/internal/statcan"
)

var fetchConcurrency int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the latest census tables",
	Long: `Discover the most recent Census of Agriculture cube list and download
every table in the extraction plan, filtered to the configured geographies,
into data/<year>/. Ctrl-C stops the run; tables already saved are kept.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.StatCan.UserAgent,
			Timeout:    time.Duration(cfg.StatCan.TimeoutSecs) * time.Second,
			MaxRetries: cfg.StatCan.MaxRetries,
		})
		client := statcan.New(f, cfg.StatCan.BaseURL)
		extractor := statcan.NewExtractor(client, cfg.Data.Root, cfg.StatCan.Geographies, fetchConcurrency)

		zap.L().Info("starting fetch",
			zap.String("data_root", cfg.Data.Root),
			zap.Strings("geographies", cfg.StatCan.Geographies),
		)

		var downloaded, missed, failed int
		cancelled := false
		for outcome := range extractor.Run(ctx) {
			switch outcome.Status {
			case statcan.OutcomeDownloaded:
				downloaded++
				fmt.Printf("[%3d%%] %s\n", outcome.Percent, outcome.Message)
			case statcan.OutcomeNoMatch:
				missed++
				fmt.Printf("[%3d%%] %s\n", outcome.Percent, outcome.Message)
			case statcan.OutcomeFailed:
				failed++
				fmt.Printf("[%3d%%] %s: %s\n", outcome.Percent, outcome.Table, outcome.Message)
			case statcan.OutcomeCancelled:
				cancelled = true
			}
		}

		if cancelled {
			fmt.Println("Download stopped by user")
			return nil
		}
		fmt.Printf("All downloads complete: %d saved, %d unmatched, %d failed\n", downloaded, missed, failed)
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 3, "parallel table downloads")
	rootCmd.AddCommand(fetchCmd)
}
