package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/palliser-group/agcensus-cli/internal/export"
	"github.com/palliser-group/agcensus-cli/internal/state"
)

var (
	exportFormat string
	exportDir    string
	exportAll    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export report values to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		st, err := state.Open(statePath())
		if err != nil {
			return err
		}

		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}

		path, rows, err := export.Write(ctx, st, dir, format, !exportAll)
		if err != nil {
			return err
		}

		fmt.Printf("Export complete: %d rows saved to %s\n", rows, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv or xlsx)")
	exportCmd.Flags().StringVar(&exportDir, "out", "", "output directory (default: configured export dir)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every item, not just included ones")
	rootCmd.AddCommand(exportCmd)
}
