package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listings-cli/internal/model"
)

// stubSource is a hand-rolled Source for coordinator tests.
type stubSource struct {
	name  string
	cols  []string
	fetch func(ctx context.Context, coord model.Coordinate) (model.Attributes, error)
}

func (s *stubSource) Name() string      { return s.name }
func (s *stubSource) Columns() []string { return s.cols }
func (s *stubSource) Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error) {
	return s.fetch(ctx, coord)
}

func attrSource(name, col, val string) *stubSource {
	return &stubSource{
		name: name,
		cols: []string{col},
		fetch: func(context.Context, model.Coordinate) (model.Attributes, error) {
			return model.Attributes{col: val}, nil
		},
	}
}

func listingAt(index int, lat, lon string) model.Listing {
	l := model.NewListing(index)
	l.Set(model.ColAddress, "512 E Green St")
	l.Set(model.ColLatitude, lat)
	l.Set(model.ColLongitude, lon)
	return l
}

func TestEnrich_MergesAllSources(t *testing.T) {
	progress := NewProgress()
	coord := NewCoordinator([]Source{
		attrSource("census", ColMedianIncome, "58000"),
		attrSource("transit", ColBusStops1KM, "12"),
	}, time.Second, progress)

	in := listingAt(0, "40.116", "-88.243")
	out := coord.Enrich(context.Background(), in)

	assert.Equal(t, "58000", out.Get(ColMedianIncome))
	assert.Equal(t, "12", out.Get(ColBusStops1KM))
	assert.Equal(t, "512 E Green St", out.Get(model.ColAddress), "original columns survive")

	snap := progress.Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 1, snap.Sources["census"].Success)
	assert.Equal(t, 1, snap.Sources["transit"].Success)
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	coord := NewCoordinator([]Source{attrSource("census", ColMedianIncome, "58000")}, time.Second, nil)

	in := listingAt(0, "40.116", "-88.243")
	_ = coord.Enrich(context.Background(), in)

	assert.Empty(t, in.Get(ColMedianIncome))
}

func TestEnrich_SkipsRecordWithoutCoordinates(t *testing.T) {
	called := false
	progress := NewProgress()
	coord := NewCoordinator([]Source{&stubSource{
		name: "census",
		cols: []string{ColMedianIncome},
		fetch: func(context.Context, model.Coordinate) (model.Attributes, error) {
			called = true
			return nil, nil
		},
	}}, time.Second, progress)

	for _, lat := range []string{"", "not-a-number", "NaN"} {
		in := listingAt(0, lat, "-88.243")
		out := coord.Enrich(context.Background(), in)
		assert.Equal(t, in.Values, out.Values, "lat=%q", lat)
	}

	assert.False(t, called, "no source queried for unenrichable records")
	assert.Equal(t, 3, progress.Snapshot().Skipped)
}

func TestEnrich_SourceFailureIsIndependent(t *testing.T) {
	progress := NewProgress()
	coord := NewCoordinator([]Source{
		attrSource("transit", ColBusStops1KM, "4"),
		&stubSource{
			name: "census",
			cols: []string{ColMedianIncome},
			fetch: func(context.Context, model.Coordinate) (model.Attributes, error) {
				return nil, eris.New("census: unexpected status 500: boom")
			},
		},
	}, time.Second, progress)

	out := coord.Enrich(context.Background(), listingAt(3, "40.116", "-88.243"))

	assert.Equal(t, "4", out.Get(ColBusStops1KM))
	assert.Empty(t, out.Get(ColMedianIncome), "failed source leaves its columns absent")

	snap := progress.Snapshot()
	assert.Equal(t, 1, snap.Processed)
	assert.Equal(t, 1, snap.Sources["census"].Failure)
	assert.Equal(t, 1, snap.Sources["transit"].Success)
}

func TestEnrich_RecoversSourcePanic(t *testing.T) {
	progress := NewProgress()
	coord := NewCoordinator([]Source{
		attrSource("transit", ColBusStops1KM, "4"),
		&stubSource{
			name: "beats",
			cols: []string{ColPoliceBeat},
			fetch: func(context.Context, model.Coordinate) (model.Attributes, error) {
				panic("nil map write")
			},
		},
	}, time.Second, progress)

	require.NotPanics(t, func() {
		out := coord.Enrich(context.Background(), listingAt(0, "40.116", "-88.243"))
		assert.Equal(t, "4", out.Get(ColBusStops1KM))
	})
	assert.Equal(t, 1, progress.Snapshot().Sources["beats"].Failure)
}

func TestEnrich_SourceTimeout(t *testing.T) {
	progress := NewProgress()
	coord := NewCoordinator([]Source{&stubSource{
		name: "routes",
		cols: []string{"drive_to_depot_min"},
		fetch: func(ctx context.Context, _ model.Coordinate) (model.Attributes, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}, 10*time.Millisecond, progress)

	out := coord.Enrich(context.Background(), listingAt(0, "40.116", "-88.243"))

	assert.Empty(t, out.Get("drive_to_depot_min"))
	assert.Equal(t, 1, progress.Snapshot().Sources["routes"].Failure)
}

func TestEnrich_EmptyAttrsIsSuccess(t *testing.T) {
	progress := NewProgress()
	coord := NewCoordinator([]Source{&stubSource{
		name: "beats",
		cols: []string{ColPoliceBeat},
		fetch: func(context.Context, model.Coordinate) (model.Attributes, error) {
			return model.Attributes{}, nil
		},
	}}, time.Second, progress)

	out := coord.Enrich(context.Background(), listingAt(0, "40.116", "-88.243"))

	assert.Empty(t, out.Get(ColPoliceBeat))
	assert.Equal(t, 1, progress.Snapshot().Sources["beats"].Success, "no data is not a failure")
}
