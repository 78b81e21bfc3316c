package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/listings-cli/internal/model"
)

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Listings")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTestCSV(t, "address,latitude,longitude\n512 E Green St,40.110,-88.232\n,40.2,\n")

	ds, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"address", "latitude", "longitude"}, ds.Columns)
	require.Len(t, ds.Listings, 2)

	assert.Equal(t, 0, ds.Listings[0].Index)
	assert.Equal(t, "512 E Green St", ds.Listings[0].Get(model.ColAddress))
	assert.Equal(t, "40.110", ds.Listings[0].Get(model.ColLatitude))

	assert.Equal(t, 1, ds.Listings[1].Index)
	assert.Empty(t, ds.Listings[1].Get(model.ColLongitude))
}

func TestLoadCSV_ShortRows(t *testing.T) {
	path := writeTestCSV(t, "address,latitude,longitude\n512 E Green St\n")

	ds, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, ds.Listings, 1)
	assert.Empty(t, ds.Listings[0].Get(model.ColLatitude))
}

func TestLoadCSV_Empty(t *testing.T) {
	path := writeTestCSV(t, "")

	_, err := LoadCSV(path)
	require.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	path := writeTestXLSX(t, [][]string{
		{"address", "latitude", "longitude"},
		{"512 E Green St", "40.110", "-88.232"},
	})

	ds, err := LoadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"address", "latitude", "longitude"}, ds.Columns)
	require.Len(t, ds.Listings, 1)
	assert.Equal(t, "40.110", ds.Listings[0].Get(model.ColLatitude))
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	csvPath := writeTestCSV(t, "address\na\n")
	ds, err := Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, ds.Listings, 1)

	_, err = Load("listings.parquet")
	require.Error(t, err)
}

func TestRequireCoordinateColumns(t *testing.T) {
	ds := &Dataset{Columns: []string{"address", "latitude", "longitude"}}
	require.NoError(t, ds.RequireCoordinateColumns())

	ds = &Dataset{Columns: []string{"address", "latitude"}}
	err := ds.RequireCoordinateColumns()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longitude")
}

func TestOutputColumns(t *testing.T) {
	ds := &Dataset{Columns: []string{"address", "latitude", "median_income"}}

	cols := ds.OutputColumns([]string{"median_income", "police_beat"})
	assert.Equal(t, []string{"address", "latitude", "median_income", "police_beat"}, cols,
		"derived columns append after input columns, no duplicates")
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	listing := model.NewListing(0)
	listing.Set("address", "512 E Green St")
	listing.Set("median_income", "58000")

	path := filepath.Join(t.TempDir(), "out.csv")
	columns := []string{"address", "median_income", "police_beat"}
	require.NoError(t, WriteCSV(path, columns, []model.Listing{listing}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, columns, records[0])
	assert.Equal(t, []string{"512 E Green St", "58000", ""}, records[1], "missing column written empty")
}

func TestWriteCSV_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("old,content\n"), 0o644))

	require.NoError(t, WriteCSV(path, []string{"address"}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "address\n", string(data))
}

func TestIntermediatePath(t *testing.T) {
	assert.Equal(t, "results_intermediate.csv", IntermediatePath("results.csv"))
	assert.Equal(t, filepath.Join("out", "run1_intermediate.csv"), IntermediatePath(filepath.Join("out", "run1.csv")))
}

func TestCheckpointWriter(t *testing.T) {
	listing := model.NewListing(0)
	listing.Set("address", "a")

	path := filepath.Join(t.TempDir(), "out_intermediate.csv")
	w := NewCheckpointWriter(path, []string{"address"})
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.Write([]model.Listing{listing}))
	require.NoError(t, w.Write([]model.Listing{listing, listing}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "address\na\na\n", string(data), "each write replaces the file")
}
