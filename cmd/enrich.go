package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listings-cli/internal/dataset"
	"github.com/sells-group/listings-cli/internal/enrich"
	"github.com/sells-group/listings-cli/internal/model"
	"github.com/sells-group/listings-cli/internal/status"
)

var (
	enrichInput  string
	enrichOutput string

	enrichBatchSize    int
	enrichStartIdx     int
	enrichPlacesRadius int

	skipCensus  bool
	skipTransit bool
	skipBeats   bool
	skipPlaces  bool
	skipRoutes  bool

	enrichDryRun     bool
	enrichStatusAddr string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a listings file with neighborhood attributes",
	Long: `Reads a listings file (.csv or .xlsx), queries each enabled source per
record in fixed-size batches, and writes the enriched CSV. After every batch
the accumulated results are checkpointed to <output>_intermediate.csv; a
crashed run resumes with --start-idx.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyEnrichFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ds, err := dataset.Load(enrichInput)
		if err != nil {
			return err
		}
		if err := ds.RequireCoordinateColumns(); err != nil {
			return err
		}

		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}
		columns := ds.OutputColumns(enrich.EnrichmentColumns(sources))

		if enrichDryRun {
			printDryRun(os.Stdout, ds, sources, columns)
			return nil
		}

		return runEnrichment(ctx, ds, sources, columns)
	},
}

func applyEnrichFlags(cmd *cobra.Command) {
	if skipCensus {
		cfg.Census.Enabled = false
	}
	if skipTransit {
		cfg.Transit.Enabled = false
	}
	if skipBeats {
		cfg.Beats.Enabled = false
	}
	if skipPlaces {
		cfg.Places.Enabled = false
	}
	if skipRoutes {
		cfg.Routes.Enabled = false
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Batch.Size = enrichBatchSize
	}
	if cmd.Flags().Changed("places-radius") {
		cfg.Places.RadiusM = enrichPlacesRadius
	}
}

func runEnrichment(ctx context.Context, ds *dataset.Dataset, sources []enrich.Source, columns []string) error {
	progress := enrich.NewProgress()
	coordinator := enrich.NewCoordinator(sources,
		time.Duration(cfg.Batch.SourceTimeoutSecs)*time.Second, progress)
	checkpoint := dataset.NewCheckpointWriter(dataset.IntermediatePath(enrichOutput), columns)
	scheduler := enrich.NewScheduler(enrich.SchedulerConfig{
		BatchSize: cfg.Batch.Size,
		Delay:     time.Duration(cfg.Batch.DelaySeconds) * time.Second,
		StartIdx:  enrichStartIdx,
	}, coordinator, checkpoint, progress)

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, enrichInput, enrichOutput, enrichStartIdx)
	if err != nil {
		return err
	}
	if err := st.MarkRunning(ctx, run.ID); err != nil {
		return err
	}

	if enrichStatusAddr != "" {
		go func() {
			if err := status.Serve(ctx, enrichStatusAddr, progress); err != nil {
				zap.L().Error("status server failed", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	enriched, err := scheduler.Run(ctx, ds.Listings)
	if err != nil {
		_ = st.FailRun(context.WithoutCancel(ctx), run.ID, err)
		return err
	}

	if err := dataset.WriteCSV(enrichOutput, columns, enriched); err != nil {
		_ = st.FailRun(context.WithoutCancel(ctx), run.ID, err)
		return err
	}

	fills := enrich.FillRates(enriched, enrich.EnrichmentColumns(sources))
	summary := buildSummary(progress.Snapshot(), len(enriched), fills, time.Since(started))
	if err := st.CompleteRun(ctx, run.ID, summary); err != nil {
		return err
	}

	zap.L().Info("run complete",
		zap.String("run_id", run.ID),
		zap.String("output", enrichOutput),
		zap.Int("records", len(enriched)),
		zap.Duration("took", time.Since(started)),
	)
	printSummary(os.Stdout, run.ID, summary, fills)
	return nil
}

func buildSummary(snap enrich.Snapshot, records int, fills []enrich.ColumnFill, took time.Duration) *model.RunSummary {
	fillRates := make(map[string]float64, len(fills))
	for _, f := range fills {
		fillRates[f.Column] = f.Rate()
	}
	return &model.RunSummary{
		Records:    records,
		Skipped:    snap.Skipped,
		Batches:    snap.BatchesDone,
		Sources:    snap.Sources,
		FillRates:  fillRates,
		DurationMS: took.Milliseconds(),
	}
}

func printDryRun(out io.Writer, ds *dataset.Dataset, sources []enrich.Source, columns []string) {
	fmt.Fprintf(out, "Input: %s (%d records, %d columns)\n", enrichInput, len(ds.Listings), len(ds.Columns))

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	fmt.Fprintf(out, "Sources: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(out, "Output columns: %s\n", strings.Join(columns, ", "))

	missing := 0
	for _, l := range ds.Listings {
		if _, ok := l.Coordinate(); !ok {
			missing++
		}
	}
	if missing > 0 {
		fmt.Fprintf(out, "Records without coordinates (will be skipped): %d\n", missing)
	}
}

func printSummary(out io.Writer, runID string, summary *model.RunSummary, fills []enrich.ColumnFill) {
	fmt.Fprintf(out, "\nRun %s: %d records, %d skipped, %d batches, %.1fs\n\n",
		runID, summary.Records, summary.Skipped, summary.Batches,
		float64(summary.DurationMS)/1000.0)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COLUMN\tFILLED\tRATE")
	_, _ = fmt.Fprintln(w, "------\t------\t----")
	for _, f := range fills {
		_, _ = fmt.Fprintf(w, "%s\t%d/%d\t%.1f%%\n", f.Column, f.Filled, f.Total, f.Rate()*100)
	}
	_ = w.Flush()
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichInput, "input", "i", "", "input listings file (.csv or .xlsx)")
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "output CSV path")
	enrichCmd.Flags().IntVar(&enrichBatchSize, "batch-size", 5, "records per batch")
	enrichCmd.Flags().IntVar(&enrichStartIdx, "start-idx", 0, "record index to resume from")
	enrichCmd.Flags().IntVar(&enrichPlacesRadius, "places-radius", 1000, "amenity search radius in meters")
	enrichCmd.Flags().BoolVar(&skipCensus, "skip-census", false, "skip the census income source")
	enrichCmd.Flags().BoolVar(&skipTransit, "skip-transit", false, "skip the bus stop source")
	enrichCmd.Flags().BoolVar(&skipBeats, "skip-beats", false, "skip the police beat source")
	enrichCmd.Flags().BoolVar(&skipPlaces, "skip-places", false, "skip the nearby amenities source")
	enrichCmd.Flags().BoolVar(&skipRoutes, "skip-routes", false, "skip the drive time source")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "validate input and print the plan without querying sources")
	enrichCmd.Flags().StringVar(&enrichStatusAddr, "status-addr", "", "serve live progress on this address (e.g. :8080)")
	_ = enrichCmd.MarkFlagRequired("input")
	_ = enrichCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(enrichCmd)
}
