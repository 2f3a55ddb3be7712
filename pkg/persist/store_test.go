package persist

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/assessment-parcels/pkg/dataset"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func sampleDataset() *dataset.Dataset {
	return dataset.FromRecords(
		dataset.NewRecord("roll_number", "1", "full_address", "10 MAIN ST", "total_assessed_value", json.Number("250000")),
		dataset.NewRecord("roll_number", "2", "full_address", "12 MAIN ST, UNIT 3", "total_assessed_value", nil),
		dataset.NewRecord("roll_number", "3", "total_assessed_value", json.Number("99000"), "zoning", "R1"),
	)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Assessment_Parcels_20240307_140509.csv", FileName(fixedTime))
}

func TestSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, fixedClock)

	path, err := store.Save(sampleDataset(), "data/raw")
	require.NoError(t, err)
	assert.Equal(t, "data/raw/Assessment_Parcels_20240307_140509.csv", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4, "header plus three records")
	assert.Equal(t, "roll_number,full_address,total_assessed_value,zoning", lines[0])
	assert.Equal(t, "1,10 MAIN ST,250000,", lines[1])
	assert.Equal(t, `2,"12 MAIN ST, UNIT 3",,`, lines[2])
	assert.Equal(t, "3,,99000,R1", lines[3])
}

func TestSave_EmptyDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, fixedClock)

	path, err := store.Save(dataset.New(), "out")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(data), "empty header line only")
}

func TestSave_SameSecondOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, fixedClock)

	first, err := store.Save(sampleDataset(), "out")
	require.NoError(t, err)
	second, err := store.Save(dataset.FromRecords(dataset.NewRecord("a", "1")), "out")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := afero.ReadFile(fs, second)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))
}

func TestSave_ReadOnlyFs(t *testing.T) {
	store := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), fixedClock)

	_, err := store.Save(sampleDataset(), "out")
	assert.Error(t, err)
}

func TestLoad_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, fixedClock)

	path, err := store.Save(sampleDataset(), "out")
	require.NoError(t, err)

	ds, err := store.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"roll_number", "full_address", "total_assessed_value", "zoning"}, ds.Columns())
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, "12 MAIN ST, UNIT 3", ds.Records[1].Text("full_address"))
	assert.Equal(t, "", ds.Records[1].Text("total_assessed_value"))
	v, ok := ds.Records[2].Float("total_assessed_value")
	assert.True(t, ok)
	assert.Equal(t, 99000.0, v)
}

func TestLoad_Missing(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), nil)
	_, err := store.Load("nope.csv")
	assert.Error(t, err)
}

func TestReadCSV_RaggedRows(t *testing.T) {
	_, err := ReadCSV(bufio.NewReader(strings.NewReader("a,b\n1\n")))
	assert.Error(t, err)
}

func TestSaveAs(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, fixedClock)

	require.NoError(t, store.SaveAs(sampleDataset(), "processed/train.csv"))
	exists, err := afero.Exists(fs, "processed/train.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}
