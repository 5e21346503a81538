// Package locate finds the most recent downloaded census table matching a
// keyword under the per-year data directories.
package locate

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoFile is returned when no year directory contains a file matching the
// keyword. Missing input data is a hard error to the caller, unlike a row
// that fails to match inside a file.
var ErrNoFile = eris.New("locate: no matching file")

// Locate scans integer-named subdirectories of root from the most recent
// year down and returns the first CSV file whose name contains keyword
// (case-insensitive), together with the year it came from. Matches are not
// aggregated across years: the newest year with any match wins.
func Locate(root, keyword string) (string, int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", 0, eris.Wrapf(err, "locate: read %s", root)
	}

	var years []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if y, convErr := strconv.Atoi(e.Name()); convErr == nil {
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	needle := strings.ToLower(keyword)
	for _, year := range years {
		dir := filepath.Join(root, strconv.Itoa(year))
		files, err := os.ReadDir(dir)
		if err != nil {
			return "", 0, eris.Wrapf(err, "locate: read %s", dir)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			name := f.Name()
			if !strings.HasSuffix(strings.ToLower(name), ".csv") {
				continue
			}
			if strings.Contains(strings.ToLower(name), needle) {
				return filepath.Join(dir, name), year, nil
			}
		}
	}

	return "", 0, eris.Wrapf(ErrNoFile, "keyword %q under %s", keyword, root)
}
