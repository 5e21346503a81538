package statcan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusYears(t *testing.T) {
	cases := []struct {
		year int
		want []int
	}{
		{2026, []int{2026, 2021, 2016}},
		{2025, []int{2021, 2016, 2011}},
		{2024, []int{2021, 2016, 2011}},
		{2022, []int{2021, 2016, 2011}},
		{2021, []int{2021, 2016, 2011}},
	}
	for _, tc := range cases {
		now := time.Date(tc.year, 6, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.want, CensusYears(now), "year %d", tc.year)
	}
}

func TestFilterCensusCubes(t *testing.T) {
	cubes := []Cube{
		{ProductID: 1, CubeTitleEn: "Census of Agriculture, 2021. Cattle inventory"},
		{ProductID: 2, CubeTitleEn: "CENSUS OF AGRICULTURE, 2021. Land use"},
		{ProductID: 3, CubeTitleEn: "Census of Agriculture, 2016. Cattle inventory"},
		{ProductID: 4, CubeTitleEn: "Labour force survey, 2021"},
		{ProductID: 5, CubeTitleEn: "Census of Population, 2021"},
	}

	got := FilterCensusCubes(cubes, 2021)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ProductID)
	assert.Equal(t, 2, got[1].ProductID)

	assert.Empty(t, FilterCensusCubes(cubes, 2011))
}

func TestProductID(t *testing.T) {
	cubes := []Cube{
		{ProductID: 10, CubeTitleEn: "Census of Agriculture, 2021. Cattle inventory"},
		{ProductID: 11, CubeTitleEn: "Census of Agriculture, 2021. Sheep inventory"},
		{ProductID: 12, CubeTitleEn: "Census of Agriculture, 2021. Cattle inventory (detail)"},
	}

	id, ok := ProductID(cubes, "CATTLE inventory")
	require.True(t, ok)
	assert.Equal(t, 10, id, "first title match wins")

	_, ok = ProductID(cubes, "bees")
	assert.False(t, ok)
}

func TestDownloadPlan_NamesAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for _, entry := range DownloadPlan() {
		assert.NotEmpty(t, entry.Name)
		assert.NotEmpty(t, entry.Keyword)
		_, dup := seen[entry.Name]
		assert.False(t, dup, "duplicate plan name %s", entry.Name)
		seen[entry.Name] = struct{}{}
	}
}
