// Package enrich drives the listing enrichment pipeline: a set of source
// adapters fanned out per record by the coordinator, scheduled in fixed-size
// batches with per-batch checkpointing.
package enrich

import (
	"context"
	"sort"
	"strconv"

	"github.com/sells-group/listings-cli/internal/geospatial"
	"github.com/sells-group/listings-cli/internal/model"
	"github.com/sells-group/listings-cli/internal/resilience"
	"github.com/sells-group/listings-cli/pkg/arcgis"
	"github.com/sells-group/listings-cli/pkg/census"
	"github.com/sells-group/listings-cli/pkg/places"
	"github.com/sells-group/listings-cli/pkg/routes"
	"github.com/sells-group/listings-cli/pkg/transit"
)

// Source names.
const (
	SourceCensus  = "census"
	SourceTransit = "transit"
	SourceBeats   = "beats"
	SourcePlaces  = "places"
	SourceRoutes  = "routes"
)

// Derived column names.
const (
	ColMedianIncome = "median_income"
	ColBusStops1KM  = "bus_stops_1km"
	ColPoliceBeat   = "police_beat"
)

// Source is one enrichment capability. The coordinator treats sources as a
// fixed ordered set; adding a provider means adding an implementation, not
// touching coordinator logic. Fetch must honor ctx cancellation and return
// an empty Attributes map (not an error) when the source simply has no data
// for the point.
type Source interface {
	Name() string
	Columns() []string
	Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error)
}

// EnrichmentColumns returns the derived columns of the given sources, in
// source order. This fixes the output header regardless of which records
// failed.
func EnrichmentColumns(sources []Source) []string {
	var cols []string
	for _, s := range sources {
		cols = append(cols, s.Columns()...)
	}
	return cols
}

// -- census --

type censusSource struct {
	client census.Client
	retry  resilience.RetryConfig
}

// NewCensusSource derives median_income from the ACS block-group estimate.
func NewCensusSource(client census.Client) Source {
	return &censusSource{client: client, retry: resilience.DefaultRetryConfig()}
}

func (s *censusSource) Name() string      { return SourceCensus }
func (s *censusSource) Columns() []string { return []string{ColMedianIncome} }

func (s *censusSource) Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error) {
	income, err := resilience.Do(ctx, s.retry, SourceCensus, func(ctx context.Context) (*census.Income, error) {
		return s.client.MedianIncome(ctx, coord.Lat, coord.Lon)
	})
	if err != nil {
		return nil, err
	}

	attrs := model.Attributes{}
	if income != nil {
		attrs[ColMedianIncome] = strconv.Itoa(income.Amount)
	}
	return attrs, nil
}

// -- transit --

type transitSource struct {
	client   transit.Client
	maxStops int
	retry    resilience.RetryConfig
}

// NewTransitSource derives bus_stops_1km from MTD stops near the point.
func NewTransitSource(client transit.Client, maxStops int) Source {
	if maxStops <= 0 {
		maxStops = 200
	}
	return &transitSource{client: client, maxStops: maxStops, retry: resilience.DefaultRetryConfig()}
}

func (s *transitSource) Name() string      { return SourceTransit }
func (s *transitSource) Columns() []string { return []string{ColBusStops1KM} }

func (s *transitSource) Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error) {
	stops, err := resilience.Do(ctx, s.retry, SourceTransit, func(ctx context.Context) ([]transit.Stop, error) {
		return s.client.StopsNearby(ctx, coord.Lat, coord.Lon, s.maxStops)
	})
	if err != nil {
		return nil, err
	}

	count := 0
	for _, stop := range stops {
		if stop.WithinKM() {
			count++
		}
	}
	return model.Attributes{ColBusStops1KM: strconv.Itoa(count)}, nil
}

// -- police beats (remote ArcGIS) --

type beatsSource struct {
	client arcgis.Client
	retry  resilience.RetryConfig
}

// NewBeatsSource derives police_beat from the ArcGIS open-data layer.
func NewBeatsSource(client arcgis.Client) Source {
	return &beatsSource{client: client, retry: resilience.DefaultRetryConfig()}
}

func (s *beatsSource) Name() string      { return SourceBeats }
func (s *beatsSource) Columns() []string { return []string{ColPoliceBeat} }

func (s *beatsSource) Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error) {
	beat, err := resilience.Do(ctx, s.retry, SourceBeats, func(ctx context.Context) (string, error) {
		return s.client.FeatureForPoint(ctx, coord.Lat, coord.Lon)
	})
	if err != nil {
		return nil, err
	}

	attrs := model.Attributes{}
	if beat != "" {
		attrs[ColPoliceBeat] = beat
	}
	return attrs, nil
}

// -- police beats (local shapefile) --

type localBeatsSource struct {
	index *geospatial.BeatIndex
}

// NewLocalBeatsSource derives police_beat from a local shapefile polygon
// index instead of the remote layer.
func NewLocalBeatsSource(index *geospatial.BeatIndex) Source {
	return &localBeatsSource{index: index}
}

func (s *localBeatsSource) Name() string      { return SourceBeats }
func (s *localBeatsSource) Columns() []string { return []string{ColPoliceBeat} }

func (s *localBeatsSource) Fetch(_ context.Context, coord model.Coordinate) (model.Attributes, error) {
	attrs := model.Attributes{}
	if beat := s.index.BeatForPoint(coord.Lat, coord.Lon); beat != "" {
		attrs[ColPoliceBeat] = beat
	}
	return attrs, nil
}

// -- places --

type placesSource struct {
	client     places.Client
	categories map[string][]string
	order      []string
	radiusM    int
	retry      resilience.RetryConfig
}

// NewPlacesSource derives one <category>_nearby count column per configured
// category. Categories are queried in name order so the column set and any
// failure behavior are deterministic.
func NewPlacesSource(client places.Client, categories map[string][]string, radiusM int) Source {
	if radiusM <= 0 {
		radiusM = 1000
	}
	order := make([]string, 0, len(categories))
	for name := range categories {
		order = append(order, name)
	}
	sort.Strings(order)

	return &placesSource{
		client:     client,
		categories: categories,
		order:      order,
		radiusM:    radiusM,
		retry:      resilience.DefaultRetryConfig(),
	}
}

func (s *placesSource) Name() string { return SourcePlaces }

func (s *placesSource) Columns() []string {
	cols := make([]string, 0, len(s.order))
	for _, name := range s.order {
		cols = append(cols, name+"_nearby")
	}
	return cols
}

func (s *placesSource) Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error) {
	attrs := model.Attributes{}
	for _, name := range s.order {
		types := s.categories[name]
		count, err := resilience.Do(ctx, s.retry, SourcePlaces, func(ctx context.Context) (int, error) {
			return s.client.CountNearby(ctx, coord.Lat, coord.Lon, types, s.radiusM)
		})
		if err != nil {
			return nil, err
		}
		attrs[name+"_nearby"] = strconv.Itoa(count)
	}
	return attrs, nil
}

// -- routes --

type routesSource struct {
	client    routes.Client
	landmarks []Landmark
	mode      string
	retry     resilience.RetryConfig
}

// NewRoutesSource derives one drive_to_<landmark>_min column per landmark.
func NewRoutesSource(client routes.Client, landmarks []Landmark, mode string) Source {
	if len(landmarks) == 0 {
		landmarks = DefaultLandmarks()
	}
	return &routesSource{
		client:    client,
		landmarks: landmarks,
		mode:      mode,
		retry:     resilience.DefaultRetryConfig(),
	}
}

func (s *routesSource) Name() string { return SourceRoutes }

func (s *routesSource) Columns() []string {
	cols := make([]string, 0, len(s.landmarks))
	for _, lm := range s.landmarks {
		cols = append(cols, lm.Column())
	}
	return cols
}

func (s *routesSource) Fetch(ctx context.Context, coord model.Coordinate) (model.Attributes, error) {
	attrs := model.Attributes{}
	for _, lm := range s.landmarks {
		minutes, err := resilience.Do(ctx, s.retry, SourceRoutes, func(ctx context.Context) (*float64, error) {
			return s.client.TravelMinutes(ctx, coord.Lat, coord.Lon, lm.Lat, lm.Lon, s.mode)
		})
		if err != nil {
			return nil, err
		}
		if minutes != nil {
			attrs[lm.Column()] = strconv.FormatFloat(*minutes, 'f', 1, 64)
		}
	}
	return attrs, nil
}
