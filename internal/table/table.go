// Package table loads downloaded census CSV tables and matches report rows
// by normalized keyword and unit of measure.
package table

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a fully loaded CSV table.
type Table struct {
	Header []string
	Rows   [][]string
}

// Load reads a census CSV file into memory. StatCan downloads carry a UTF-8
// BOM, so the reader runs through a BOM-stripping decoder first.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	dec := unicode.UTF8BOM.NewDecoder()
	reader := csv.NewReader(transform.NewReader(f, dec))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var tbl Table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "table: read %s", path)
		}
		if tbl.Header == nil {
			tbl.Header = record
			continue
		}
		tbl.Rows = append(tbl.Rows, record)
	}

	if tbl.Header == nil {
		return nil, eris.Errorf("table: %s is empty", path)
	}
	return &tbl, nil
}

// cell returns the row value at col, or "" when the row is short.
func (t *Table) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// columnIndex returns the index of the named header column, or -1.
func (t *Table) columnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}
