package statcan

import (
	"strconv"
	"strings"
	"time"
)

// CensusYears returns the three most recent Census of Agriculture years as
// of now. The census runs on years ending in 1 and 6, so the latest
// candidate is year - ((year - 1) mod 5).
func CensusYears(now time.Time) []int {
	year := now.Year()
	latest := year - ((year - 1) % 5)
	return []int{latest, latest - 5, latest - 10}
}

// FilterCensusCubes returns the cubes whose English title mentions
// Agriculture, Census, and the given year. Matching is case-insensitive.
func FilterCensusCubes(cubes []Cube, year int) []Cube {
	yearStr := strconv.Itoa(year)
	var out []Cube
	for _, c := range cubes {
		title := strings.ToLower(c.CubeTitleEn)
		if strings.Contains(title, "agriculture") &&
			strings.Contains(title, "census") &&
			strings.Contains(title, yearStr) {
			out = append(out, c)
		}
	}
	return out
}

// ProductID returns the product ID of the first cube whose title contains
// keyword (case-insensitive), or false when none matches.
func ProductID(cubes []Cube, keyword string) (int, bool) {
	needle := strings.ToLower(keyword)
	for _, c := range cubes {
		if strings.Contains(strings.ToLower(c.CubeTitleEn), needle) {
			return c.ProductID, true
		}
	}
	return 0, false
}
