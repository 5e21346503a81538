// Package importer drives the per-item census import: locate the source
// file, match the row, extrapolate, persist. Outcomes stream out on a
// channel so any front end can render progress without the core knowing
// about it.
package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/palliser-group/agcensus-cli/internal/locate"
	"github.com/palliser-group/agcensus-cli/internal/state"
	"github.com/palliser-group/agcensus-cli/internal/table"
)

// Status classifies a per-item outcome.
type Status string

const (
	// StatusUpdated means the item's value was extrapolated and persisted.
	StatusUpdated Status = "updated"
	// StatusNoData means no source file or no matching row was found.
	StatusNoData Status = "no_data"
	// StatusNoChange means a row matched but extrapolation was a no-op
	// (missing ratio or unusable source value).
	StatusNoChange Status = "no_change"
	// StatusSkipped means the item was not eligible (excluded or unconfigured).
	StatusSkipped Status = "skipped"
	// StatusFailed means an I/O or schema failure; schema failures end the run.
	StatusFailed Status = "failed"
	// StatusCancelled is the terminal outcome of a run stopped by the user.
	StatusCancelled Status = "cancelled"
)

// Outcome is one per-item result in a run's outcome stream.
type Outcome struct {
	RunID   uuid.UUID
	Item    string
	Status  Status
	Message string
	Year    int
	Percent int
}

// Driver runs batch imports against a state store.
type Driver struct {
	store    *state.Store
	dataRoot string
}

// New creates a Driver reading source tables under dataRoot.
func New(store *state.Store, dataRoot string) *Driver {
	return &Driver{store: store, dataRoot: dataRoot}
}

// testHookAfterEmit, when non-nil, runs in the driver goroutine after each
// outcome is delivered. Tests use it to cancel at deterministic points.
var testHookAfterEmit func(Outcome)

// Run starts a batch import and returns its outcome stream. Caller must
// consume the channel; it is closed when the run completes, fails hard, or
// is cancelled. Items are processed strictly sequentially in stored order;
// cancellation is checked before each item and again after the lookup, so
// updates persisted by earlier items are retained when a run stops early.
func (d *Driver) Run(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome)
	go func() {
		defer close(ch)
		d.run(ctx, ch)
	}()
	return ch
}

func (d *Driver) run(ctx context.Context, ch chan<- Outcome) {
	runID := uuid.New()
	log := zap.L().With(
		zap.String("component", "importer"),
		zap.String("run_id", runID.String()),
	)

	names := d.store.Names()
	total := len(names)
	log.Info("starting import", zap.Int("items", total))

	emit := func(o Outcome) {
		o.RunID = runID
		ch <- o
		if testHookAfterEmit != nil {
			testHookAfterEmit(o)
		}
	}
	percent := func(done int) int {
		if total == 0 {
			return 100
		}
		return done * 100 / total
	}

	var updated, missed, skipped int
	for i, name := range names {
		if ctx.Err() != nil {
			log.Warn("import stopped by user", zap.Int("processed", i))
			emit(Outcome{Status: StatusCancelled, Message: "import stopped by user", Percent: percent(i)})
			return
		}

		item, ok := d.store.Get(name)
		if !ok {
			continue
		}
		if !item.Included {
			skipped++
			emit(Outcome{Item: name, Status: StatusSkipped, Message: "not included", Percent: percent(i + 1)})
			continue
		}
		if item.FileKeyword == "" || len(item.NameKeywords) == 0 || item.UnitOfMeasure == "" {
			skipped++
			emit(Outcome{Item: name, Status: StatusSkipped, Message: "missing import configuration", Percent: percent(i + 1)})
			continue
		}

		result, year, err := d.lookup(item)
		if err != nil {
			if eris.Is(err, table.ErrSchema) {
				// A table we cannot interpret means the download is broken;
				// carrying on would fail every remaining item the same way.
				log.Error("schema error, aborting run", zap.String("item", name), zap.Error(err))
				emit(Outcome{Item: name, Status: StatusFailed, Message: err.Error(), Percent: percent(i + 1)})
				return
			}
			if eris.Is(err, locate.ErrNoFile) {
				missed++
				emit(Outcome{Item: name, Status: StatusNoData, Message: fmt.Sprintf("no data found for %s", name), Percent: percent(i + 1)})
				continue
			}
			log.Error("lookup failed", zap.String("item", name), zap.Error(err))
			emit(Outcome{Item: name, Status: StatusFailed, Message: err.Error(), Percent: percent(i + 1)})
			continue
		}

		// Lookups read whole tables; re-check before writing anything.
		if ctx.Err() != nil {
			log.Warn("import stopped by user", zap.Int("processed", i))
			emit(Outcome{Status: StatusCancelled, Message: "import stopped by user", Percent: percent(i)})
			return
		}

		if result == nil {
			missed++
			emit(Outcome{Item: name, Status: StatusNoData, Message: fmt.Sprintf("no data found for %s", name), Year: year, Percent: percent(i + 1)})
			continue
		}

		applied, err := d.store.Extrapolate(name, result.Value, result.Status)
		if err != nil {
			log.Error("persist failed, aborting run", zap.String("item", name), zap.Error(err))
			emit(Outcome{Item: name, Status: StatusFailed, Message: err.Error(), Percent: percent(i + 1)})
			return
		}
		if !applied {
			emit(Outcome{Item: name, Status: StatusNoChange, Message: "source value or ratio unusable", Year: year, Percent: percent(i + 1)})
			continue
		}

		updated++
		emit(Outcome{
			Item:    name,
			Status:  StatusUpdated,
			Message: fmt.Sprintf("processed %s (%d)", name, year),
			Year:    year,
			Percent: percent(i + 1),
		})
	}

	log.Info("import complete",
		zap.Int("updated", updated),
		zap.Int("no_data", missed),
		zap.Int("skipped", skipped),
	)
}

// lookup locates the item's source table and matches its row. A nil result
// with nil error is a soft miss.
func (d *Driver) lookup(item state.Item) (*table.MatchResult, int, error) {
	path, year, err := locate.Locate(d.dataRoot, item.FileKeyword)
	if err != nil {
		return nil, 0, err
	}
	tbl, err := table.Load(path)
	if err != nil {
		return nil, year, err
	}
	result, err := table.Match(tbl, item.NameKeywords, item.UnitOfMeasure)
	if err != nil {
		return nil, year, err
	}
	return result, year, nil
}
