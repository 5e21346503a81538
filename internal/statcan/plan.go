package statcan

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/palliser-group/agcensus-cli/internal/fetcher"
)

// PlanEntry names one census table to download and the title keyword that
// finds it in the cube list.
type PlanEntry struct {
	Name    string
	Keyword string
}

// DownloadPlan lists the Census of Agriculture tables the wizard extracts.
func DownloadPlan() []PlanEntry {
	return []PlanEntry{
		// Farm classifications
		{"farm_type", "farm type"},
		{"total_farm_area", "total farm area"},
		{"land_tenure", "land tenure"},
		{"operating_arrangement", "operating arrangement"},
		{"direct_sales", "direct sales"},
		{"paid_labour", "paid labour"},
		{"succession_plan", "succession plan"},

		// Land and crops
		{"land_use", "land use"},
		{"field_crops", "field crops"},
		{"fruits", "fruits"},
		{"greenhouse_products", "greenhouse products"},
		{"land_inputs", "manure and irrigation"},

		// Livestock and poultry
		{"cattle_inventory", "cattle inventory"},
		{"sheep_inventory", "sheep inventory"},
		{"pig_inventory", "pig inventory"},
		{"other_livestock", "other livestock inventories"},
		{"poultry_inventory", "poultry inventories"},
		{"egg_production", "egg production"},
		{"bees", "bees"},

		// Technology and energy
		{"renewable_energy", "renewable energy production"},

		// Operators
		{"farm_operators_age_sex", "age, sex and number of operators"},
		{"farm_operators_work", "farm work and other paid work"},
	}
}

// OutcomeStatus classifies a per-table download outcome.
type OutcomeStatus string

const (
	OutcomeDownloaded OutcomeStatus = "downloaded"
	OutcomeNoMatch    OutcomeStatus = "no_match"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeCancelled  OutcomeStatus = "cancelled"
)

// Outcome is one per-table result of an extract run.
type Outcome struct {
	Table   string
	Status  OutcomeStatus
	Message string
	Path    string
	Percent int
}

// Extractor downloads the census table plan into per-year data directories.
type Extractor struct {
	client      *Client
	dataRoot    string
	geographies []string
	concurrency int
}

// NewExtractor builds an Extractor. geographies lists the GEO values kept
// when filtering each table; concurrency bounds parallel table downloads.
func NewExtractor(client *Client, dataRoot string, geographies []string, concurrency int) *Extractor {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Extractor{
		client:      client,
		dataRoot:    dataRoot,
		geographies: geographies,
		concurrency: concurrency,
	}
}

// Run discovers the most recent census cube list and downloads every table
// in the plan, streaming one Outcome per table. Caller must consume the
// channel; it closes when the run finishes or is cancelled.
func (e *Extractor) Run(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome)
	go func() {
		defer close(ch)
		e.run(ctx, ch)
	}()
	return ch
}

func (e *Extractor) run(ctx context.Context, ch chan<- Outcome) {
	log := zap.L().With(zap.String("component", "statcan.extract"))

	cubes, year, err := e.findCensus(ctx)
	if err != nil {
		if ctx.Err() != nil {
			ch <- Outcome{Status: OutcomeCancelled, Message: "download stopped by user"}
			return
		}
		ch <- Outcome{Status: OutcomeFailed, Message: err.Error()}
		return
	}
	log.Info("found census tables", zap.Int("year", year), zap.Int("cubes", len(cubes)))

	plan := DownloadPlan()
	total := len(plan)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, entry := range plan {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			outcome := e.fetchTable(gctx, cubes, year, entry)
			outcome.Percent = int(done.Add(1)) * 100 / total
			if gctx.Err() != nil {
				return nil
			}
			ch <- outcome
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		ch <- Outcome{Status: OutcomeCancelled, Message: "download stopped by user"}
	}
}

// findCensus fetches the cube list and picks the newest census year that
// has any agriculture census cubes.
func (e *Extractor) findCensus(ctx context.Context) ([]Cube, int, error) {
	cubes, err := e.client.CubesLite(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, year := range CensusYears(time.Now()) {
		if filtered := FilterCensusCubes(cubes, year); len(filtered) > 0 {
			return filtered, year, nil
		}
	}
	return nil, 0, eris.New("statcan: no census data found for the last 3 census years")
}

// fetchTable downloads and filters a single plan entry. Failures come back
// as structured outcomes, never errors, so one bad table cannot sink the run.
func (e *Extractor) fetchTable(ctx context.Context, cubes []Cube, year int, entry PlanEntry) Outcome {
	id, ok := ProductID(cubes, entry.Keyword)
	if !ok {
		return Outcome{Table: entry.Name, Status: OutcomeNoMatch,
			Message: fmt.Sprintf("no match found for keyword: %s", entry.Keyword)}
	}

	if ctx.Err() != nil {
		return Outcome{Table: entry.Name, Status: OutcomeCancelled, Message: "download stopped by user"}
	}

	tmpDir, err := os.MkdirTemp("", "agcensus-*")
	if err != nil {
		return Outcome{Table: entry.Name, Status: OutcomeFailed, Message: err.Error()}
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	rawPath, err := e.client.DownloadTable(ctx, id, tmpDir)
	if err != nil {
		return Outcome{Table: entry.Name, Status: OutcomeFailed, Message: err.Error()}
	}

	yearDir := filepath.Join(e.dataRoot, strconv.Itoa(year))
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return Outcome{Table: entry.Name, Status: OutcomeFailed, Message: err.Error()}
	}
	destPath := filepath.Join(yearDir, fmt.Sprintf("%s_%d.csv", entry.Name, year))

	if err := e.filterTable(ctx, rawPath, destPath); err != nil {
		return Outcome{Table: entry.Name, Status: OutcomeFailed, Message: err.Error()}
	}

	return Outcome{Table: entry.Name, Status: OutcomeDownloaded,
		Message: fmt.Sprintf("downloaded %s", destPath), Path: destPath}
}

// filterTable copies the raw table to dest keeping only rows whose GEO
// column matches one of the configured geographies. A table without a GEO
// column is copied whole, with a warning.
func (e *Extractor) filterTable(ctx context.Context, srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return eris.Wrapf(err, "statcan: open %s", srcPath)
	}
	defer src.Close() //nolint:errcheck

	dest, err := os.Create(destPath)
	if err != nil {
		return eris.Wrapf(err, "statcan: create %s", destPath)
	}
	defer dest.Close() //nolint:errcheck

	keep := make(map[string]struct{}, len(e.geographies))
	for _, g := range e.geographies {
		keep[g] = struct{}{}
	}

	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, src, headerCh)

	// The header is always sent before any row, so the first event is either
	// the header or the row channel closing on an empty file.
	var header []string
	select {
	case header = <-headerCh:
	case _, ok := <-rows:
		if !ok {
			if err := <-errs; err != nil {
				return err
			}
			return eris.Errorf("statcan: %s is empty", srcPath)
		}
	}

	// Full-table downloads start with a UTF-8 BOM on the first header cell.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	w := csv.NewWriter(dest)
	geoCol := -1
	for i, col := range header {
		if col == "GEO" {
			geoCol = i
			break
		}
	}
	if geoCol < 0 {
		zap.L().Warn("statcan: no GEO column, keeping all rows", zap.String("table", srcPath))
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "statcan: write header")
	}

	for row := range rows {
		if geoCol >= 0 {
			if geoCol >= len(row) {
				continue
			}
			if _, ok := keep[row[geoCol]]; !ok {
				continue
			}
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "statcan: write row")
		}
	}
	if err := <-errs; err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "statcan: flush %s", destPath)
	}
	return nil
}
