package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/palliser-group/agcensus-cli/internal/importer"
	"github.com/palliser-group/agcensus-cli/internal/state"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Extrapolate local values from downloaded census tables",
	Long: `For every included item, find the most recent downloaded table matching
its file keyword, match the configured row, and extrapolate the provincial
value into a local estimate using the item's ratio. Each update is persisted
immediately; Ctrl-C stops the run and keeps updates already written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := state.Open(statePath())
		if err != nil {
			return err
		}

		driver := importer.New(st, cfg.Data.Root)
		zap.L().Info("starting import", zap.String("state", st.Path()))

		var updated, missed int
		cancelled := false
		for outcome := range driver.Run(ctx) {
			switch outcome.Status {
			case importer.StatusUpdated:
				updated++
				fmt.Printf("[%3d%%] %s\n", outcome.Percent, outcome.Message)
			case importer.StatusNoData:
				missed++
				fmt.Printf("[%3d%%] %s\n", outcome.Percent, outcome.Message)
			case importer.StatusNoChange:
				fmt.Printf("[%3d%%] %s: %s\n", outcome.Percent, outcome.Item, outcome.Message)
			case importer.StatusFailed:
				fmt.Printf("[%3d%%] %s failed: %s\n", outcome.Percent, outcome.Item, outcome.Message)
			case importer.StatusCancelled:
				cancelled = true
			}
		}

		if cancelled {
			fmt.Println("Import stopped by user")
			return nil
		}
		fmt.Printf("Import complete: %d updated, %d without data\n", updated, missed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
