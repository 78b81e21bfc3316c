package enrich

import (
	"sync"

	"github.com/sells-group/listings-cli/internal/model"
)

// Progress accumulates per-run counters. Safe for concurrent use; the status
// endpoint reads snapshots while the scheduler and coordinator write.
type Progress struct {
	mu           sync.Mutex
	processed    int
	skipped      int
	batchesDone  int
	batchesTotal int
	sources      map[string]model.SourceTally
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Processed    int                          `json:"processed"`
	Skipped      int                          `json:"skipped"`
	BatchesDone  int                          `json:"batches_done"`
	BatchesTotal int                          `json:"batches_total"`
	Sources      map[string]model.SourceTally `json:"sources"`
}

// NewProgress creates a zeroed Progress.
func NewProgress() *Progress {
	return &Progress{sources: make(map[string]model.SourceTally)}
}

// MarkProcessed records one record run through the coordinator.
func (p *Progress) MarkProcessed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
}

// MarkSkipped records one record skipped for missing coordinates.
func (p *Progress) MarkSkipped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped++
}

// MarkSuccess records a successful source fetch.
func (p *Progress) MarkSuccess(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tally := p.sources[source]
	tally.Success++
	p.sources[source] = tally
}

// MarkFailure records a failed source fetch.
func (p *Progress) MarkFailure(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tally := p.sources[source]
	tally.Failure++
	p.sources[source] = tally
}

// MarkBatch records batch completion.
func (p *Progress) MarkBatch(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batchesDone = done
	p.batchesTotal = total
}

// Snapshot returns a copy of the current counters.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	sources := make(map[string]model.SourceTally, len(p.sources))
	for name, tally := range p.sources {
		sources[name] = tally
	}
	return Snapshot{
		Processed:    p.processed,
		Skipped:      p.skipped,
		BatchesDone:  p.batchesDone,
		BatchesTotal: p.batchesTotal,
		Sources:      sources,
	}
}
