package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listings-cli/internal/config"
	"github.com/sells-group/listings-cli/internal/enrich"
	"github.com/sells-group/listings-cli/internal/geospatial"
	"github.com/sells-group/listings-cli/pkg/arcgis"
	"github.com/sells-group/listings-cli/pkg/census"
	"github.com/sells-group/listings-cli/pkg/places"
	"github.com/sells-group/listings-cli/pkg/routes"
	"github.com/sells-group/listings-cli/pkg/transit"
)

// buildSources assembles the enabled source adapters from config. Order is
// fixed so derived columns always land in the same order.
func buildSources(cfg *config.Config) ([]enrich.Source, error) {
	var sources []enrich.Source

	if cfg.Census.Enabled {
		client := census.NewClient(cfg.Census.APIKey,
			census.WithGeocoderURL(cfg.Census.GeocoderURL),
			census.WithACSBaseURL(cfg.Census.ACSBaseURL),
			census.WithYear(cfg.Census.Year),
		)
		sources = append(sources, enrich.NewCensusSource(client))
	}

	if cfg.Transit.Enabled {
		client := transit.NewClient(cfg.Transit.APIKey,
			transit.WithBaseURL(cfg.Transit.BaseURL),
		)
		sources = append(sources, enrich.NewTransitSource(client, cfg.Transit.MaxStops))
	}

	if cfg.Beats.Enabled {
		if cfg.Beats.ShapefilePath != "" {
			index, err := geospatial.LoadBeatIndex(cfg.Beats.ShapefilePath, "NAME")
			if err != nil {
				return nil, eris.Wrap(err, "load beats shapefile")
			}
			sources = append(sources, enrich.NewLocalBeatsSource(index))
		} else {
			sources = append(sources, enrich.NewBeatsSource(arcgis.NewClient(cfg.Beats.LayerURL)))
		}
	}

	if cfg.Places.Enabled {
		client := places.NewClient(cfg.Places.APIKey,
			places.WithBaseURL(cfg.Places.BaseURL),
		)
		sources = append(sources, enrich.NewPlacesSource(client, cfg.Places.Categories, cfg.Places.RadiusM))
	}

	if cfg.Routes.Enabled {
		landmarks := enrich.DefaultLandmarks()
		if cfg.Routes.LandmarksFile != "" {
			loaded, err := enrich.LoadLandmarks(cfg.Routes.LandmarksFile)
			if err != nil {
				return nil, err
			}
			landmarks = loaded
		}
		client := routes.NewClient(cfg.Routes.APIKey,
			routes.WithBaseURL(cfg.Routes.BaseURL),
		)
		sources = append(sources, enrich.NewRoutesSource(client, landmarks, cfg.Routes.Mode))
	}

	if len(sources) == 0 {
		return nil, eris.New("all sources are disabled; nothing to enrich")
	}
	return sources, nil
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured enrichment sources and their columns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SOURCE\tENABLED\tCOLUMNS")
		_, _ = fmt.Fprintln(w, "------\t-------\t-------")

		for _, row := range sourceRows(cfg) {
			_, _ = fmt.Fprintf(w, "%s\t%v\t%s\n", row.name, row.enabled, strings.Join(row.columns, ", "))
		}
		return w.Flush()
	},
}

type sourceRow struct {
	name    string
	enabled bool
	columns []string
}

func sourceRows(cfg *config.Config) []sourceRow {
	landmarks := enrich.DefaultLandmarks()
	if cfg.Routes.LandmarksFile != "" {
		if loaded, err := enrich.LoadLandmarks(cfg.Routes.LandmarksFile); err == nil {
			landmarks = loaded
		}
	}
	routeCols := make([]string, 0, len(landmarks))
	for _, lm := range landmarks {
		routeCols = append(routeCols, lm.Column())
	}

	placeCols := make([]string, 0, len(cfg.Places.Categories))
	for name := range cfg.Places.Categories {
		placeCols = append(placeCols, name+"_nearby")
	}
	sort.Strings(placeCols)

	return []sourceRow{
		{enrich.SourceCensus, cfg.Census.Enabled, []string{enrich.ColMedianIncome}},
		{enrich.SourceTransit, cfg.Transit.Enabled, []string{enrich.ColBusStops1KM}},
		{enrich.SourceBeats, cfg.Beats.Enabled, []string{enrich.ColPoliceBeat}},
		{enrich.SourcePlaces, cfg.Places.Enabled, placeCols},
		{enrich.SourceRoutes, cfg.Routes.Enabled, routeCols},
	}
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
