package dataset

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatch(t *testing.T) {
	payload := `[
		{"roll_number": "12345", "total_assessed_value": "250000", "multiple_residences": false, "zoning": null},
		{"roll_number": "67890", "total_living_area": 1200, "geometry": {"type": "Point", "coordinates": [1, 2]}}
	]`

	batch, err := DecodeBatch(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, batch, 2)

	first := batch[0]
	assert.Equal(t, []string{"roll_number", "total_assessed_value", "multiple_residences", "zoning"}, first.Keys())

	v, ok := first.Get("multiple_residences")
	require.True(t, ok)
	assert.Equal(t, false, v)

	v, ok = first.Get("zoning")
	require.True(t, ok)
	assert.Nil(t, v)

	second := batch[1]
	v, _ = second.Get("total_living_area")
	assert.Equal(t, json.Number("1200"), v)
	assert.Equal(t, `{"type":"Point","coordinates":[1,2]}`, second.Text("geometry"))
}

func TestDecodeBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "malformed json", payload: `[{"a": 1`},
		{name: "object instead of array", payload: `{"error": true, "message": "no such column"}`},
		{name: "array of scalars", payload: `[1, 2, 3]`},
		{name: "trailing data", payload: `[] []`},
		{name: "stray closing bracket", payload: `[{"a":"1"}]]`},
		{name: "stray closing brace", payload: `[{"a":"1"}]}`},
		{name: "stray bracket after empty array", payload: `[] ]`},
		{name: "html error page", payload: `<html>Bad Gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBatch(strings.NewReader(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestDecodeBatch_Empty(t *testing.T) {
	for _, payload := range []string{`[]`, `null`} {
		batch, err := DecodeBatchBytes([]byte(payload))
		require.NoError(t, err, payload)
		assert.Empty(t, batch, payload)
	}
}

func TestRecord_MarshalJSONKeepsOrder(t *testing.T) {
	rec := NewRecord("z", "last", "a", json.Number("1.5"), "m", nil)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":1.5,"m":null}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.Keys(), back.Keys())
}

func TestRecord_SetExistingKeepsPosition(t *testing.T) {
	rec := NewRecord("a", "1", "b", "2")
	rec.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	assert.Equal(t, "3", rec.Text("a"))
}

func TestRecord_Delete(t *testing.T) {
	rec := NewRecord("a", "1", "b", "2", "c", "3")
	rec.Delete("b")
	rec.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, rec.Keys())
	_, ok := rec.Get("b")
	assert.False(t, ok)
}

func TestRecord_Float(t *testing.T) {
	rec := NewRecord(
		"number", json.Number("12.5"),
		"text", "300",
		"bad", "n/a",
		"null", nil,
	)

	f, ok := rec.Float("number")
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	f, ok = rec.Float("text")
	assert.True(t, ok)
	assert.Equal(t, 300.0, f)

	_, ok = rec.Float("bad")
	assert.False(t, ok)
	_, ok = rec.Float("null")
	assert.False(t, ok)
	_, ok = rec.Float("absent")
	assert.False(t, ok)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("0012"), "0012"},
		{true, "true"},
		{2.5, "2.5"},
		{7, "7"},
		{int64(9), "9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestDataset_AppendColumnsUnion(t *testing.T) {
	ds := New()
	ds.Append(Batch{NewRecord("a", "1", "b", "2")})
	ds.Append(Batch{NewRecord("b", "3", "c", "4"), NewRecord("d", "5")})

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"a", "b", "c", "d"}, ds.Columns())
	assert.True(t, ds.HasColumn("c"))
	assert.False(t, ds.HasColumn("e"))
}

func TestDataset_DropColumns(t *testing.T) {
	ds := FromRecords(
		NewRecord("a", "1", "b", "2"),
		NewRecord("a", "3", "b", "4", "c", "5"),
	)

	ds.DropColumns("b")

	assert.Equal(t, []string{"a", "c"}, ds.Columns())
	for _, rec := range ds.Records {
		_, ok := rec.Get("b")
		assert.False(t, ok)
	}
}

func TestDataset_FilterAndSelect(t *testing.T) {
	ds := FromRecords(
		NewRecord("id", "0"),
		NewRecord("id", "1"),
		NewRecord("id", "2"),
	)

	odd := ds.Filter(func(r Record) bool { return r.Text("id") == "1" })
	require.Equal(t, 1, odd.Len())
	assert.Equal(t, []string{"id"}, odd.Columns())

	picked := ds.Select([]int{2, 0})
	require.Equal(t, 2, picked.Len())
	assert.Equal(t, "2", picked.Records[0].Text("id"))
	assert.Equal(t, "0", picked.Records[1].Text("id"))
}

func TestDataset_DerivedDatasetsAreIndependent(t *testing.T) {
	ds := FromRecords(
		NewRecord("id", "0", "score", "1.5"),
		NewRecord("id", "1", "score", "2.5"),
	)

	filtered := ds.Filter(func(Record) bool { return true })
	filtered.DropColumns("score")
	picked := ds.Select([]int{1})
	picked.Records[0].Set("id", "changed")

	assert.Equal(t, []string{"id", "score"}, ds.Columns())
	for i, rec := range ds.Records {
		assert.Equal(t, []string{"id", "score"}, rec.Keys(), "record %d", i)
		v, ok := rec.Get("score")
		require.True(t, ok, "record %d", i)
		assert.NotNil(t, v)
	}
	assert.Equal(t, "1", ds.Records[1].Text("id"))
	assert.Equal(t, []string{"id"}, filtered.Records[0].Keys())
}

func TestRecord_Clone(t *testing.T) {
	rec := NewRecord("a", "1", "b", "2")
	cp := rec.Clone()
	cp.Delete("a")
	cp.Set("c", "3")

	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	assert.Equal(t, "1", rec.Text("a"))
	_, ok := rec.Get("c")
	assert.False(t, ok)

	assert.Equal(t, 0, Record{}.Clone().Len())
}

func TestDataset_NilLen(t *testing.T) {
	var ds *Dataset
	assert.Equal(t, 0, ds.Len())
}
