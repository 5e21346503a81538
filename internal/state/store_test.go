package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 5, 11, 9, 30, 0, 0, time.UTC)
}

func openFixture(t *testing.T, body string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wizard_state.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	st, err := Open(path)
	require.NoError(t, err)
	st.now = fixedNow
	return st
}

func f(v float64) *float64 { return &v }

func TestOpen_BootstrapsDefaultCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "wizard_state.json")

	st, err := Open(path)
	require.NoError(t, err)

	names := st.Names()
	assert.NotEmpty(t, names)
	assert.Equal(t, "total farm area", names[0])

	// Bootstrap persists immediately.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	// A second open reads the written file back identically.
	again, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, names, again.Names())
}

func TestOpen_MalformedFileIsHardError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpen_ItemsMustBeObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": [1, 2]}`), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestStore_PreservesItemOrder(t *testing.T) {
	st := openFixture(t, `{"items":{"zebra":{"included":true,"value":null},"apple":{"included":true,"value":null},"mango":{"included":false,"value":null}}}`)

	assert.Equal(t, []string{"zebra", "apple", "mango"}, st.Names())

	// Order survives a save/reload cycle.
	require.NoError(t, st.SetQuality("apple", "A"))
	again, err := Open(st.Path())
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra", "apple", "mango"}, again.Names())
}

func TestStore_PreservesUnknownFields(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":12,"custom_note":"keep me","nested":{"a":1}}}}`)

	require.NoError(t, st.SetValue("cattle", f(99)))

	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"custom_note": "keep me"`)
	assert.Contains(t, string(data), `"nested"`)
}

func TestSetValue_NonFiniteStoredAsNull(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":12}}}`)

	nan := 0.0
	nan = nan / nan
	require.NoError(t, st.SetValue("cattle", &nan))

	it, ok := st.Get("cattle")
	require.True(t, ok)
	assert.Nil(t, it.Value)

	// The persisted file must still parse.
	_, err := Open(st.Path())
	assert.NoError(t, err)
}

func TestGet_ReturnsCopy(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":12,"name_keywords":["cattle"]}}}`)

	it, ok := st.Get("cattle")
	require.True(t, ok)
	*it.Value = 999
	it.NameKeywords[0] = "mutated"

	fresh, _ := st.Get("cattle")
	assert.Equal(t, 12.0, *fresh.Value)
	assert.Equal(t, "cattle", fresh.NameKeywords[0])
}

func TestExtrapolate_DerivesAndRounds(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"ratio":0.1,"value":null}}}`)

	applied, err := st.Extrapolate("cattle", "500", "A")
	require.NoError(t, err)
	assert.True(t, applied)

	it, _ := st.Get("cattle")
	require.NotNil(t, it.Value)
	assert.Equal(t, 50.0, *it.Value)
	assert.Equal(t, MethodExtrapolation, it.Method)
	assert.Equal(t, "2026-05-11", it.DateApplied)
	assert.Equal(t, "A", it.Quality)
	assert.Empty(t, it.History, "no prior value, nothing to snapshot")
}

func TestExtrapolate_RoundsHalfAwayFromZero(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"ratio":0.5,"value":null}}}`)

	applied, err := st.Extrapolate("cattle", "5", "")
	require.NoError(t, err)
	require.True(t, applied)

	it, _ := st.Get("cattle")
	assert.Equal(t, 3.0, *it.Value)
}

func TestExtrapolate_SnapshotsPriorValue(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"ratio":2,"value":10,"method":"manual","date_value_was_applied":"2020-01-01"}}}`)

	applied, err := st.Extrapolate("cattle", "7", "B")
	require.NoError(t, err)
	assert.True(t, applied)

	it, _ := st.Get("cattle")
	assert.Equal(t, 14.0, *it.Value)
	require.Len(t, it.History, 1)
	entry := it.History[0]
	assert.Equal(t, 10.0, *entry.Value)
	assert.Equal(t, MethodManual, entry.Method)
	assert.Equal(t, "2020-01-01", entry.DateGathered)
	assert.Equal(t, "2026-05-11", entry.DateSaved)
}

func TestExtrapolate_NoOpCases(t *testing.T) {
	body := `{"items":{"with_ratio":{"included":true,"ratio":0.5,"value":null},"no_ratio":{"included":true,"value":null}}}`

	cases := []struct {
		name   string
		item   string
		source string
	}{
		{"empty source", "with_ratio", ""},
		{"whitespace source", "with_ratio", "   "},
		{"non-numeric source", "with_ratio", "x"},
		{"suppressed cell", "with_ratio", ".."},
		{"missing ratio", "no_ratio", "500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := openFixture(t, body)
			before, err := os.ReadFile(st.Path())
			require.NoError(t, err)

			applied, err := st.Extrapolate(tc.item, tc.source, "A")
			require.NoError(t, err)
			assert.False(t, applied)

			it, _ := st.Get(tc.item)
			assert.Nil(t, it.Value)
			assert.Empty(t, it.History)

			// A no-op must not rewrite the file contents.
			after, err := os.ReadFile(st.Path())
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
		})
	}
}

func TestExtrapolate_UnknownItem(t *testing.T) {
	st := openFixture(t, `{"items":{}}`)

	applied, err := st.Extrapolate("ghost", "500", "A")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestExtrapolate_StringRatio(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"ratio":"0.25","value":null}}}`)

	applied, err := st.Extrapolate("cattle", "100", "A")
	require.NoError(t, err)
	require.True(t, applied)

	it, _ := st.Get("cattle")
	assert.Equal(t, 25.0, *it.Value)
}

func TestApplyManual_SnapshotsAndSets(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":10,"method":"extrapolation","date_value_was_applied":"2021-06-01"}}}`)

	require.NoError(t, st.ApplyManual("cattle", 42))

	it, _ := st.Get("cattle")
	assert.Equal(t, 42.0, *it.Value)
	assert.Equal(t, MethodManual, it.Method)
	assert.Equal(t, "2026-05-11", it.DateApplied)
	require.Len(t, it.History, 1)
	assert.Equal(t, 10.0, *it.History[0].Value)
	assert.Equal(t, MethodExtrapolation, it.History[0].Method)
}

func TestSnapshotHistory_DeduplicatesRepeats(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":10,"method":"manual","date_value_was_applied":"2020-01-01"}}}`)

	require.NoError(t, st.SnapshotHistory("cattle"))
	require.NoError(t, st.SnapshotHistory("cattle"))

	it, _ := st.Get("cattle")
	assert.Len(t, it.History, 1)
}

func TestSnapshotHistory_SkipsUnsetValue(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":null}}}`)

	require.NoError(t, st.SnapshotHistory("cattle"))

	it, _ := st.Get("cattle")
	assert.Empty(t, it.History)
}

func TestSnapshotHistory_AppendsDistinctObservations(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":10,"method":"manual","date_value_was_applied":"2020-01-01"}}}`)

	require.NoError(t, st.SnapshotHistory("cattle"))
	require.NoError(t, st.SetValue("cattle", f(20)))
	require.NoError(t, st.SnapshotHistory("cattle"))

	it, _ := st.Get("cattle")
	require.Len(t, it.History, 2)
	assert.Equal(t, 10.0, *it.History[0].Value)
	assert.Equal(t, 20.0, *it.History[1].Value)
}

func TestSetIncluded_Persists(t *testing.T) {
	st := openFixture(t, `{"items":{"cattle":{"included":true,"value":null}}}`)

	require.NoError(t, st.SetIncluded("cattle", false))

	again, err := Open(st.Path())
	require.NoError(t, err)
	it, _ := again.Get("cattle")
	assert.False(t, it.Included)
}

func TestIncludedValues(t *testing.T) {
	st := openFixture(t, `{"items":{"a":{"included":true,"value":1},"b":{"included":false,"value":2},"c":{"included":true,"value":null}}}`)

	vals := st.IncludedValues()
	require.Len(t, vals, 2)
	assert.Equal(t, 1.0, *vals["a"])
	assert.Nil(t, vals["c"])
	_, ok := vals["b"]
	assert.False(t, ok)
}
