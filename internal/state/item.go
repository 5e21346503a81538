package state

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// MethodExtrapolation marks values derived from a provincial figure via the
// item's ratio, as opposed to values entered by hand.
const (
	MethodExtrapolation = "extrapolation"
	MethodManual        = "manual"
)

// HistoryEntry is an immutable snapshot of an item's value taken just before
// it was overwritten.
type HistoryEntry struct {
	Value        *float64 `json:"value"`
	Method       string   `json:"method,omitempty"`
	DateGathered string   `json:"date_gathered,omitempty"`
	DateSaved    string   `json:"date_saved_to_history,omitempty"`
}

// sameObservation reports whether two entries describe the same observation.
// DateSaved is deliberately excluded so re-saving an unchanged value on a
// later day does not grow the history.
func (h HistoryEntry) sameObservation(o HistoryEntry) bool {
	if (h.Value == nil) != (o.Value == nil) {
		return false
	}
	if h.Value != nil && *h.Value != *o.Value {
		return false
	}
	return h.Method == o.Method && h.DateGathered == o.DateGathered
}

// Item is one reportable metric tracked by the wizard.
//
// Fields not known to this version of the tool are preserved verbatim in
// Extra and written back on save, so the persisted file stays forward
// compatible.
type Item struct {
	Included      bool           `json:"included"`
	FileKeyword   string         `json:"file_keyword,omitempty"`
	NameKeywords  []string       `json:"name_keywords,omitempty"`
	UnitOfMeasure string         `json:"unit_of_measure,omitempty"`
	Ratio         *float64       `json:"ratio,omitempty"`
	Value         *float64       `json:"value"`
	Method        string         `json:"method,omitempty"`
	DateApplied   string         `json:"date_value_was_applied,omitempty"`
	Quality       string         `json:"quality,omitempty"`
	History       []HistoryEntry `json:"history,omitempty"`

	// Display-only fields, consumed by the edit and export surfaces.
	Category    string `json:"category,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DisplayUnit string `json:"display_unit,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// knownItemFields lists the JSON keys the typed Item struct owns.
var knownItemFields = map[string]struct{}{
	"included": {}, "file_keyword": {}, "name_keywords": {},
	"unit_of_measure": {}, "ratio": {}, "value": {}, "method": {},
	"date_value_was_applied": {}, "quality": {}, "history": {},
	"category": {}, "title": {}, "description": {}, "display_unit": {},
}

// UnmarshalJSON decodes an item, keeping unknown keys in Extra and accepting
// ratios written as either a JSON number or a numeric string.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "state: decode item")
	}

	type alias Item
	var a alias
	ratioRaw, hasRatio := raw["ratio"]
	delete(raw, "ratio")
	merged, err := json.Marshal(raw)
	if err != nil {
		return eris.Wrap(err, "state: re-encode item")
	}
	if err := json.Unmarshal(merged, &a); err != nil {
		return eris.Wrap(err, "state: decode item fields")
	}
	*it = Item(a)

	if hasRatio {
		it.Ratio = parseLenientFloat(ratioRaw)
		raw["ratio"] = ratioRaw
	}

	for k := range raw {
		if _, known := knownItemFields[k]; known {
			continue
		}
		if it.Extra == nil {
			it.Extra = make(map[string]json.RawMessage)
		}
		it.Extra[k] = raw[k]
	}
	return nil
}

// MarshalJSON encodes the typed fields and re-emits any preserved unknown
// keys. Unknown keys are written in sorted order for stable output.
func (it Item) MarshalJSON() ([]byte, error) {
	type alias Item
	base, err := json.Marshal(alias(it))
	if err != nil {
		return nil, eris.Wrap(err, "state: encode item")
	}
	if len(it.Extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(it.Extra))
	for k := range it.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := base[:len(base)-1] // drop closing brace
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, eris.Wrap(err, "state: encode extra key")
		}
		buf = append(buf, ',')
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, it.Extra[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// parseLenientFloat accepts a JSON number, a numeric string, or null.
// Anything else (and non-finite results) comes back as nil.
func parseLenientFloat(raw json.RawMessage) *float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, perr := strconv.ParseFloat(s, 64); perr == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return &v
		}
	}
	return nil
}
