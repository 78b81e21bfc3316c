package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listings-cli/internal/dataset"
	"github.com/sells-group/listings-cli/internal/enrich"
	"github.com/sells-group/listings-cli/internal/model"
)

func TestPrintDryRun(t *testing.T) {
	enrichInput = "listings.csv"

	noCoords := model.NewListing(1)
	withCoords := model.NewListing(0)
	withCoords.Set(model.ColLatitude, "40.1")
	withCoords.Set(model.ColLongitude, "-88.2")

	ds := &dataset.Dataset{
		Columns:  []string{"address", "latitude", "longitude"},
		Listings: []model.Listing{withCoords, noCoords},
	}
	sources, err := buildSources(testConfig())
	require.NoError(t, err)
	columns := ds.OutputColumns(enrich.EnrichmentColumns(sources))

	var sb strings.Builder
	printDryRun(&sb, ds, sources, columns)
	out := sb.String()

	assert.Contains(t, out, "2 records")
	assert.Contains(t, out, "census, transit, beats, places, routes")
	assert.Contains(t, out, "median_income")
	assert.Contains(t, out, "will be skipped): 1")
}

func TestBuildSummary(t *testing.T) {
	progress := enrich.NewProgress()
	progress.MarkSkipped()
	progress.MarkSuccess("census")
	progress.MarkSuccess("census")
	progress.MarkFailure("places")
	progress.MarkBatch(8, 8)

	fills := []enrich.ColumnFill{
		{Column: "median_income", Filled: 2, Total: 4},
	}
	summary := buildSummary(progress.Snapshot(), 4, fills, 61*time.Second)

	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 8, summary.Batches)
	assert.Equal(t, 2, summary.Sources["census"].Success)
	assert.Equal(t, 1, summary.Sources["places"].Failure)
	assert.InDelta(t, 0.5, summary.FillRates["median_income"], 1e-9)
	assert.Equal(t, int64(61_000), summary.DurationMS)
}

func TestPrintSummary(t *testing.T) {
	summary := &model.RunSummary{Records: 40, Skipped: 2, Batches: 8, DurationMS: 61_500}
	fills := []enrich.ColumnFill{
		{Column: "median_income", Filled: 38, Total: 40},
		{Column: "police_beat", Filled: 0, Total: 40},
	}

	var sb strings.Builder
	printSummary(&sb, "run-1", summary, fills)
	out := sb.String()

	assert.Contains(t, out, "40 records, 2 skipped, 8 batches")
	assert.Contains(t, out, "38/40")
	assert.Contains(t, out, "95.0%")
	assert.Contains(t, out, "0.0%")
}
