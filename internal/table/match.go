package table

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSchema marks a source table whose columns cannot be interpreted. It is
// a hard error: the downloaded file does not look like a census table.
var ErrSchema = eris.New("table: unrecognized schema")

// reservedColumns are the standard census table columns. The first header
// outside this set is taken as the row-name column.
var reservedColumns = map[string]struct{}{
	"REF_DATE":        {},
	"GEO":             {},
	"DGUID":           {},
	"Unit of measure": {},
	"UOM":             {},
	"VALUE":           {},
	"STATUS":          {},
}

// MatchResult carries the matched row's value and status as plain strings,
// ready to persist.
type MatchResult struct {
	Value  string
	Status string
}

// Normalize strips everything except letters, digits, underscores, and
// whitespace, lowercases, and trims. Applied identically to table values and
// query keywords so matching ignores case and punctuation. Idempotent.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(strings.ToLower(s))
}

// Match finds the row whose normalized name contains every normalized
// keyword and whose unit-of-measure column equals uom exactly. Unit strings
// are compared raw: they are expected to already be canonical.
//
// Returns (nil, nil) when no row qualifies; that is a soft, per-item miss.
// A table with no identifiable name or unit-of-measure column is an
// ErrSchema-wrapped hard error. When several rows qualify the first in table
// order wins and a warning is logged.
func Match(tbl *Table, keywords []string, uom string) (*MatchResult, error) {
	nameCol := -1
	for i, h := range tbl.Header {
		if _, reserved := reservedColumns[h]; !reserved {
			nameCol = i
			break
		}
	}
	if nameCol < 0 {
		return nil, eris.Wrap(ErrSchema, "no name column")
	}

	uomCol := tbl.columnIndex("Unit of measure")
	if uomCol < 0 {
		uomCol = tbl.columnIndex("UOM")
	}
	if uomCol < 0 {
		return nil, eris.Wrap(ErrSchema, "no Unit of measure or UOM column")
	}

	valueCol := tbl.columnIndex("VALUE")
	if valueCol < 0 {
		return nil, eris.Wrap(ErrSchema, "no VALUE column")
	}
	statusCol := tbl.columnIndex("STATUS")

	normalized := make([]string, len(keywords))
	for i, kw := range keywords {
		normalized[i] = Normalize(kw)
	}

	var first *MatchResult
	matches := 0
	for _, row := range tbl.Rows {
		name := Normalize(tbl.cell(row, nameCol))
		if !containsAll(name, normalized) {
			continue
		}
		if tbl.cell(row, uomCol) != uom {
			continue
		}
		matches++
		if first == nil {
			first = &MatchResult{
				Value:  tbl.cell(row, valueCol),
				Status: tbl.cell(row, statusCol),
			}
		}
	}

	if matches > 1 {
		zap.L().Warn("table: ambiguous match, keeping first row",
			zap.Strings("keywords", keywords),
			zap.String("unit_of_measure", uom),
			zap.Int("matches", matches),
		)
	}
	return first, nil
}

// containsAll reports whether every keyword occurs as a substring of name.
func containsAll(name string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(name, kw) {
			return false
		}
	}
	return true
}
