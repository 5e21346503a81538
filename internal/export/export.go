// Package export writes the wizard's report values to CSV or XLSX.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/palliser-group/agcensus-cli/internal/state"
)

// Format selects the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", eris.Errorf("export: unknown format %q (valid: csv, xlsx)", s)
	}
}

var header = []string{"Name", "Value", "Unit of Measure", "Category"}

// Write exports the report to dir as agcensus_export_<year>.<format> and
// returns the written path and row count. Items appear in stored order;
// when includedOnly is set, excluded items are dropped.
func Write(ctx context.Context, st *state.Store, dir string, format Format, includedOnly bool) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, eris.Wrapf(err, "export: create %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("agcensus_export_%d.%s", time.Now().Year(), format))

	rows, err := collectRows(ctx, st, includedOnly)
	if err != nil {
		return "", 0, err
	}

	switch format {
	case FormatXLSX:
		err = writeXLSX(path, rows)
	default:
		err = writeCSV(path, rows)
	}
	if err != nil {
		return "", 0, err
	}

	zap.L().Info("export complete",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return path, len(rows), nil
}

// collectRows builds the export rows in stored item order.
func collectRows(ctx context.Context, st *state.Store, includedOnly bool) ([][]string, error) {
	var rows [][]string
	for _, name := range st.Names() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "export: stopped by user")
		}
		item, ok := st.Get(name)
		if !ok {
			continue
		}
		if includedOnly && !item.Included {
			continue
		}

		title := item.Title
		if title == "" {
			title = name
		}
		value := ""
		if item.Value != nil {
			value = strconv.FormatFloat(*item.Value, 'f', -1, 64)
		}
		unit := item.DisplayUnit
		if unit == "" {
			unit = item.UnitOfMeasure
		}
		rows = append(rows, []string{title, value, unit, item.Category})
	}
	return rows, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return nil
}

func writeXLSX(path string, rows [][]string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Report")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, col := range header {
		hr.AddCell().Value = col
	}
	for _, row := range rows {
		xr := sheet.AddRow()
		for i, cell := range row {
			c := xr.AddCell()
			// Keep the value column numeric so spreadsheets can sum it.
			if i == 1 && cell != "" {
				if v, perr := strconv.ParseFloat(cell, 64); perr == nil {
					c.SetFloat(v)
					continue
				}
			}
			c.Value = cell
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
