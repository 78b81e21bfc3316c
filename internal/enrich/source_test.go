package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/sells-group/listings-cli/internal/geospatial"
	"github.com/sells-group/listings-cli/internal/model"
	"github.com/sells-group/listings-cli/pkg/census"
	"github.com/sells-group/listings-cli/pkg/transit"
)

var testCoord = model.Coordinate{Lat: 40.116, Lon: -88.243}

func geomSquare(x0, y0, x1, y1 float64) *geom.LinearRing {
	return geom.NewLinearRingFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0})
}

func fptr(f float64) *float64 { return &f }

type fakeCensus struct {
	income *census.Income
	err    error
}

func (f *fakeCensus) MedianIncome(context.Context, float64, float64) (*census.Income, error) {
	return f.income, f.err
}

func TestCensusSource(t *testing.T) {
	src := NewCensusSource(&fakeCensus{income: &census.Income{Amount: 64219}})
	assert.Equal(t, SourceCensus, src.Name())
	assert.Equal(t, []string{ColMedianIncome}, src.Columns())

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Equal(t, model.Attributes{ColMedianIncome: "64219"}, attrs)
}

func TestCensusSource_NoEstimate(t *testing.T) {
	src := NewCensusSource(&fakeCensus{income: nil})

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Empty(t, attrs, "absent estimate is a success with no attribute")
}

func TestCensusSource_Error(t *testing.T) {
	src := NewCensusSource(&fakeCensus{err: eris.New("census: unexpected status 404: not found")})

	_, err := src.Fetch(context.Background(), testCoord)
	require.Error(t, err)
}

type fakeTransit struct {
	stops []transit.Stop
	err   error
}

func (f *fakeTransit) StopsNearby(context.Context, float64, float64, int) ([]transit.Stop, error) {
	return f.stops, f.err
}

func TestTransitSource_CountsOnlyStopsWithinKM(t *testing.T) {
	src := NewTransitSource(&fakeTransit{stops: []transit.Stop{
		{ID: "a", DistanceFt: fptr(500)},
		{ID: "b", DistanceFt: fptr(transit.FtPerKM)},
		{ID: "c", DistanceFt: fptr(transit.FtPerKM + 1)},
		{ID: "d", DistanceFt: nil},
	}}, 200)

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Equal(t, model.Attributes{ColBusStops1KM: "2"}, attrs)
}

func TestTransitSource_NoStops(t *testing.T) {
	src := NewTransitSource(&fakeTransit{}, 0)

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Equal(t, "0", attrs[ColBusStops1KM], "zero stops is a real value, not an absent one")
}

type fakeArcGIS struct {
	feature string
	err     error
}

func (f *fakeArcGIS) FeatureForPoint(context.Context, float64, float64) (string, error) {
	return f.feature, f.err
}

func TestBeatsSource(t *testing.T) {
	src := NewBeatsSource(&fakeArcGIS{feature: "Beat 7"})

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Equal(t, model.Attributes{ColPoliceBeat: "Beat 7"}, attrs)
}

func TestBeatsSource_OutsideAllBeats(t *testing.T) {
	src := NewBeatsSource(&fakeArcGIS{feature: ""})

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestLocalBeatsSource(t *testing.T) {
	idx := geospatial.NewBeatIndex()
	idx.AddBeat("Campus", geomSquare(-88.30, 40.10, -88.20, 40.20))
	src := NewLocalBeatsSource(idx)
	assert.Equal(t, SourceBeats, src.Name())

	attrs, err := src.Fetch(context.Background(), model.Coordinate{Lat: 40.15, Lon: -88.25})
	require.NoError(t, err)
	assert.Equal(t, "Campus", attrs[ColPoliceBeat])

	attrs, err = src.Fetch(context.Background(), model.Coordinate{Lat: 41, Lon: -88.25})
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

type fakePlaces struct {
	counts map[string]int
	err    error
}

func (f *fakePlaces) CountNearby(_ context.Context, _, _ float64, includedTypes []string, _ int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[includedTypes[0]], nil
}

func TestPlacesSource_OneColumnPerCategory(t *testing.T) {
	categories := map[string][]string{
		"restaurants": {"restaurant"},
		"cafes":       {"cafe", "coffee_shop"},
	}
	src := NewPlacesSource(&fakePlaces{counts: map[string]int{"restaurant": 14, "cafe": 3}}, categories, 1000)

	assert.Equal(t, []string{"cafes_nearby", "restaurants_nearby"}, src.Columns(), "sorted by category name")

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Equal(t, model.Attributes{"cafes_nearby": "3", "restaurants_nearby": "14"}, attrs)
}

func TestPlacesSource_ErrorFailsSource(t *testing.T) {
	src := NewPlacesSource(&fakePlaces{err: eris.New("places: unexpected status 403: forbidden")},
		map[string][]string{"parks": {"park"}}, 0)

	_, err := src.Fetch(context.Background(), testCoord)
	require.Error(t, err)
}

type fakeRoutes struct {
	minutes map[string]*float64
	err     error
}

func (f *fakeRoutes) TravelMinutes(_ context.Context, _, _ float64, destLat, _ float64, _ string) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.minutes {
		return m, nil
	}
	_ = destLat
	return nil, nil
}

func TestRoutesSource_DefaultLandmarks(t *testing.T) {
	src := NewRoutesSource(&fakeRoutes{minutes: map[string]*float64{"any": fptr(7.5)}}, nil, "DRIVE")

	assert.Equal(t,
		[]string{"drive_to_uiuc_main_quad_min", "drive_to_downtown_champaign_min"},
		src.Columns())

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Equal(t, "7.5", attrs["drive_to_uiuc_main_quad_min"])
	assert.Equal(t, "7.5", attrs["drive_to_downtown_champaign_min"])
}

func TestRoutesSource_NoRoute(t *testing.T) {
	src := NewRoutesSource(&fakeRoutes{}, []Landmark{{Name: "Depot", Lat: 40.1, Lon: -88.2}}, "DRIVE")

	attrs, err := src.Fetch(context.Background(), testCoord)
	require.NoError(t, err)
	assert.Empty(t, attrs, "unroutable destination leaves the column absent")
}

func TestEnrichmentColumns_SourceOrder(t *testing.T) {
	sources := []Source{
		NewCensusSource(&fakeCensus{}),
		NewTransitSource(&fakeTransit{}, 200),
	}
	assert.Equal(t, []string{ColMedianIncome, ColBusStops1KM}, EnrichmentColumns(sources))
}
