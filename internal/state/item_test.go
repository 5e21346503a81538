package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLenientFloat(t *testing.T) {
	cases := []struct {
		raw  string
		want *float64
	}{
		{"0.25", f(0.25)},
		{`"0.25"`, f(0.25)},
		{`"  "`, nil},
		{`"abc"`, nil},
		{"null", nil},
		{"true", nil},
		{`[1]`, nil},
	}
	for _, tc := range cases {
		got := parseLenientFloat(json.RawMessage(tc.raw))
		if tc.want == nil {
			assert.Nil(t, got, "raw %s", tc.raw)
		} else {
			require.NotNil(t, got, "raw %s", tc.raw)
			assert.Equal(t, *tc.want, *got)
		}
	}
}

func TestItemUnmarshal_KeepsUnknownKeys(t *testing.T) {
	var it Item
	err := json.Unmarshal([]byte(`{"included":true,"value":5,"ratio":"0.5","legacy_flag":true,"notes":"x"}`), &it)
	require.NoError(t, err)

	assert.True(t, it.Included)
	assert.Equal(t, 5.0, *it.Value)
	assert.Equal(t, 0.5, *it.Ratio)
	assert.Len(t, it.Extra, 2)
	assert.JSONEq(t, "true", string(it.Extra["legacy_flag"]))

	// Known keys never leak into Extra.
	_, ok := it.Extra["value"]
	assert.False(t, ok)
}

func TestItemMarshal_RoundTripsExtra(t *testing.T) {
	var it Item
	require.NoError(t, json.Unmarshal([]byte(`{"included":true,"value":5,"b_key":2,"a_key":1}`), &it))

	out, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t, `{"included":true,"value":5,"a_key":1,"b_key":2}`, string(out))
}

func TestItemMarshal_NullValueAlwaysPresent(t *testing.T) {
	out, err := json.Marshal(Item{Included: true})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"value":null`)
}

func TestHistoryEntry_SameObservation(t *testing.T) {
	a := HistoryEntry{Value: f(10), Method: "manual", DateGathered: "2020-01-01", DateSaved: "2026-01-01"}
	b := HistoryEntry{Value: f(10), Method: "manual", DateGathered: "2020-01-01", DateSaved: "2026-02-02"}
	assert.True(t, a.sameObservation(b), "date saved is not part of the observation")

	c := b
	c.Value = f(11)
	assert.False(t, a.sameObservation(c))

	d := b
	d.Value = nil
	assert.False(t, a.sameObservation(d))
}
