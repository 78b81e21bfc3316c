package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listings-cli/internal/model"
)

// Enricher processes one record. Implemented by Coordinator; tests stub it.
type Enricher interface {
	Enrich(ctx context.Context, listing model.Listing) model.Listing
}

// Checkpointer persists the accumulated results after each batch so a
// crashed run can resume with --start-idx.
type Checkpointer interface {
	Write(listings []model.Listing) error
}

// SchedulerConfig controls batching. Zero values fall back to the defaults
// the pipeline has always used: batches of 5 with a 1s pause between them.
type SchedulerConfig struct {
	BatchSize int
	Delay     time.Duration
	StartIdx  int
}

// Scheduler walks the dataset in fixed-size batches, enriching the records
// of each batch concurrently and checkpointing after every batch. Records
// before StartIdx pass through untouched.
type Scheduler struct {
	cfg        SchedulerConfig
	enricher   Enricher
	checkpoint Checkpointer
	progress   *Progress
	logger     *zap.Logger
}

// NewScheduler builds a scheduler. checkpoint may be nil to disable
// intermediate writes (dry runs).
func NewScheduler(cfg SchedulerConfig, enricher Enricher, checkpoint Checkpointer, progress *Progress) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.StartIdx < 0 {
		cfg.StartIdx = 0
	}
	if progress == nil {
		progress = NewProgress()
	}
	return &Scheduler{
		cfg:        cfg,
		enricher:   enricher,
		checkpoint: checkpoint,
		progress:   progress,
		logger:     zap.L().Named("scheduler"),
	}
}

// Run enriches listings[StartIdx:] and returns the full slice in input
// order, the prefix passed through as-is. A checkpoint failure aborts the
// run; source failures never do.
func (s *Scheduler) Run(ctx context.Context, listings []model.Listing) ([]model.Listing, error) {
	total := len(listings)
	start := s.cfg.StartIdx
	if start > total {
		start = total
	}

	out := make([]model.Listing, 0, total)
	out = append(out, listings[:start]...)

	remaining := total - start
	totalBatches := (remaining + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	s.progress.MarkBatch(0, totalBatches)

	s.logger.Info("starting run",
		zap.Int("records", total),
		zap.Int("start_idx", start),
		zap.Int("batch_size", s.cfg.BatchSize),
		zap.Int("batches", totalBatches),
	)

	for i := start; i < total; i += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "scheduler: run cancelled")
		}

		end := i + s.cfg.BatchSize
		if end > total {
			end = total
		}
		batchNo := (i-start)/s.cfg.BatchSize + 1
		s.logger.Info("processing batch",
			zap.Int("batch", batchNo),
			zap.Int("of", totalBatches),
			zap.Int("from", i),
			zap.Int("to", end-1),
		)

		// Results land in a fixed slot per record, so batch output order
		// matches input order no matter which goroutine finishes first.
		results := make([]model.Listing, end-i)
		g, gctx := errgroup.WithContext(ctx)
		for j := i; j < end; j++ {
			g.Go(func() error {
				results[j-i] = s.enricher.Enrich(gctx, listings[j])
				return nil
			})
		}
		_ = g.Wait()
		out = append(out, results...)

		if s.checkpoint != nil {
			if err := s.checkpoint.Write(out); err != nil {
				return out, eris.Wrapf(err, "scheduler: checkpoint after batch %d", batchNo)
			}
		}
		s.progress.MarkBatch(batchNo, totalBatches)

		if end < total && s.cfg.Delay > 0 {
			if err := sleepCtx(ctx, s.cfg.Delay); err != nil {
				return out, eris.Wrap(err, "scheduler: run cancelled")
			}
		}
	}

	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
