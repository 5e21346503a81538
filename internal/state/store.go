// Package state implements the persisted wizard state: a JSON document of
// report items mutated through field-level setters that write the full file
// on every change.
package state

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store owns the wizard state document and its backing file. All mutation
// goes through setters that persist the whole document synchronously, so
// after any successful write the file matches memory.
//
// The file itself is read and written whole with last-writer-wins semantics.
// There is no cross-process locking; a single user driving one command at a
// time is the supported mode.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *document
	now  func() time.Time
}

// Open loads the state file at path, or bootstraps it from the default item
// catalog when the file does not exist. An existing but malformed file is a
// hard error.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		doc, derr := decodeDocument(data)
		if derr != nil {
			return nil, eris.Wrapf(derr, "state: load %s", path)
		}
		s.doc = doc
	case os.IsNotExist(err):
		doc, derr := defaultCatalog()
		if derr != nil {
			return nil, derr
		}
		s.doc = doc
		if serr := s.save(); serr != nil {
			return nil, serr
		}
		zap.L().Info("state: bootstrapped default catalog",
			zap.String("path", path),
			zap.Int("items", len(doc.order)),
		)
	default:
		return nil, eris.Wrapf(err, "state: read %s", path)
	}

	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Names returns item names in stored (display) order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.doc.order))
	copy(out, s.doc.order)
	return out
}

// Get returns a copy of the named item.
func (s *Store) Get(name string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.doc.get(name)
	if it == nil {
		return Item{}, false
	}
	return cloneItem(*it), true
}

// SetValue sets an item's value and persists. Non-finite values are stored
// as null so the file always round-trips through encoding/json.
func (s *Store) SetValue(name string, v *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ensure(name).Value = sanitizeFloat(v)
	return s.save()
}

// SetMethod sets an item's provenance marker and persists.
func (s *Store) SetMethod(name, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ensure(name).Method = method
	return s.save()
}

// SetDateApplied sets the ISO date the current value was applied and persists.
func (s *Store) SetDateApplied(name, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ensure(name).DateApplied = date
	return s.save()
}

// SetQuality sets the source data-quality flag and persists.
func (s *Store) SetQuality(name, quality string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ensure(name).Quality = quality
	return s.save()
}

// SetIncluded toggles whether the item participates in import and export.
func (s *Store) SetIncluded(name string, included bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ensure(name).Included = included
	return s.save()
}

// SnapshotHistory appends the item's current value, method, and gathered
// date to its history, then persists. Nothing is appended when the value is
// unset or when the snapshot would duplicate the most recent entry.
func (s *Store) SnapshotHistory(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.doc.get(name)
	if it == nil {
		return nil
	}
	if !s.snapshot(it) {
		return nil
	}
	return s.save()
}

// Extrapolate derives a local value from a provincial source value using the
// item's stored ratio. It is a no-op (false, nil) when the source value is
// empty or non-finite, when it cannot be parsed as a number, or when the
// item has no usable ratio.
//
// On success the item's prior value is snapshotted to history before the
// value, method, applied date, and quality fields are overwritten, so
// history always records what stood immediately before this call.
func (s *Store) Extrapolate(name, sourceValue, sourceStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.doc.get(name)
	if it == nil {
		return false, nil
	}

	raw := strings.TrimSpace(sourceValue)
	if raw == "" {
		return false, nil
	}
	src, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(src) || math.IsInf(src, 0) {
		return false, nil
	}
	if it.Ratio == nil {
		return false, nil
	}

	s.snapshot(it)

	// Round half away from zero, matching how the published report treats
	// head counts and dollar figures.
	derived := math.Round(src * *it.Ratio)
	it.Value = &derived
	it.Method = MethodExtrapolation
	it.DateApplied = s.today()
	it.Quality = sourceStatus

	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyManual records a hand-entered value for an item, snapshotting the
// prior value to history first.
func (s *Store) ApplyManual(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.doc.ensure(name)
	s.snapshot(it)

	v := sanitizeFloat(&value)
	it.Value = v
	it.Method = MethodManual
	it.DateApplied = s.today()
	return s.save()
}

// IncludedValues returns the export view: item name to current value for
// every included item, in stored order alongside Names.
func (s *Store) IncludedValues() map[string]*float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*float64)
	for name, it := range s.doc.items {
		if !it.Included {
			continue
		}
		out[name] = cloneFloat(it.Value)
	}
	return out
}

// snapshot appends the current observation to history if it is set and
// differs from the latest entry. Caller holds the lock and saves.
func (s *Store) snapshot(it *Item) bool {
	if it.Value == nil {
		return false
	}
	entry := HistoryEntry{
		Value:        cloneFloat(it.Value),
		Method:       it.Method,
		DateGathered: it.DateApplied,
		DateSaved:    s.today(),
	}
	if n := len(it.History); n > 0 && entry.sameObservation(it.History[n-1]) {
		return false
	}
	it.History = append(it.History, entry)
	return true
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

// save writes the full document to disk. Caller holds the lock.
func (s *Store) save() error {
	data, err := s.doc.encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "state: create %s", dir)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "state: write %s", s.path)
	}
	return nil
}

func sanitizeFloat(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	f := *v
	return &f
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneItem(it Item) Item {
	it.NameKeywords = append([]string(nil), it.NameKeywords...)
	it.History = append([]HistoryEntry(nil), it.History...)
	it.Ratio = cloneFloat(it.Ratio)
	it.Value = cloneFloat(it.Value)
	if it.Extra != nil {
		extra := make(map[string]json.RawMessage, len(it.Extra))
		for k, v := range it.Extra {
			extra[k] = v
		}
		it.Extra = extra
	}
	return it
}
