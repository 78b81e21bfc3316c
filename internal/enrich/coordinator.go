package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listings-cli/internal/model"
)

// DefaultSourceTimeout bounds a single source fetch, retries included.
const DefaultSourceTimeout = 30 * time.Second

// Coordinator fans one listing out to every source concurrently and merges
// whatever succeeded back into a copy of the listing. A source failure never
// fails the record; it just leaves that source's columns absent.
type Coordinator struct {
	sources  []Source
	timeout  time.Duration
	progress *Progress
	logger   *zap.Logger
}

// NewCoordinator builds a coordinator over the given sources. A nil progress
// is replaced with a throwaway one.
func NewCoordinator(sources []Source, timeout time.Duration, progress *Progress) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	if progress == nil {
		progress = NewProgress()
	}
	return &Coordinator{
		sources:  sources,
		timeout:  timeout,
		progress: progress,
		logger:   zap.L().Named("enrich"),
	}
}

// Enrich returns a copy of the listing with all successfully fetched
// attributes merged in. Records without parseable coordinates are returned
// unchanged and counted as skipped.
func (c *Coordinator) Enrich(ctx context.Context, listing model.Listing) model.Listing {
	out := listing.Clone()

	coord, ok := listing.Coordinate()
	if !ok {
		c.progress.MarkSkipped()
		c.logger.Debug("skipping record without coordinates",
			zap.Int("index", listing.Index),
			zap.String("address", listing.Get(model.ColAddress)),
		)
		return out
	}

	outcomes := make([]model.Outcome, len(c.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.sources {
		g.Go(func() error {
			outcomes[i] = c.invoke(gctx, src, coord)
			return nil
		})
	}
	_ = g.Wait()

	for _, outcome := range outcomes {
		if outcome.Failed() {
			c.progress.MarkFailure(outcome.Source)
			c.logger.Warn("source failed",
				zap.String("source", outcome.Source),
				zap.Int("index", listing.Index),
				zap.Error(outcome.Err),
			)
			continue
		}
		c.progress.MarkSuccess(outcome.Source)
		for col, val := range outcome.Attrs {
			out.Set(col, val)
		}
	}

	c.progress.MarkProcessed()
	return out
}

// invoke runs one source under its own timeout and converts panics into
// failed outcomes so a misbehaving adapter cannot take down the batch.
func (c *Coordinator) invoke(ctx context.Context, src Source, coord model.Coordinate) (outcome model.Outcome) {
	outcome.Source = src.Name()
	defer func() {
		if r := recover(); r != nil {
			outcome.Attrs = nil
			outcome.Err = eris.Errorf("enrich: source %s panicked: %v", src.Name(), r)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attrs, err := src.Fetch(fetchCtx, coord)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Attrs = attrs
	return outcome
}
