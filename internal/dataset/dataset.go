// Package dataset loads listing files into rows and writes enriched rows
// back out. CSV is the native format; XLSX inputs are supported for exports
// that come straight from the MLS.
package dataset

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listings-cli/internal/model"
)

// Dataset is an ordered listing table: the input column order plus one
// listing per row. Enrichment appends columns but never reorders rows.
type Dataset struct {
	Columns  []string
	Listings []model.Listing
}

// Load reads a dataset, dispatching on file extension. .csv and .xlsx are
// supported.
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("dataset: unsupported input format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// RequireCoordinateColumns verifies the dataset carries latitude and
// longitude columns. Individual rows may still have blank values; those are
// skipped at enrichment time.
func (d *Dataset) RequireCoordinateColumns() error {
	var missing []string
	for _, col := range []string{model.ColLatitude, model.ColLongitude} {
		if !d.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("dataset: input is missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasColumn reports whether the dataset header contains col.
func (d *Dataset) HasColumn(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// OutputColumns returns the output header: the input columns in their
// original order followed by any derived columns not already present.
func (d *Dataset) OutputColumns(derived []string) []string {
	out := append([]string(nil), d.Columns...)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[c] = true
	}
	for _, c := range derived {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}

func fromRows(header []string, rows [][]string) *Dataset {
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	listings := make([]model.Listing, 0, len(rows))
	for i, row := range rows {
		listing := model.NewListing(i)
		for j, col := range columns {
			if j < len(row) {
				listing.Values[col] = row[j]
			}
		}
		listings = append(listings, listing)
	}

	return &Dataset{Columns: columns, Listings: listings}
}
