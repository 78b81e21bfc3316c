package dataset

import (
	"path/filepath"
	"strings"

	"github.com/sells-group/listings-cli/internal/model"
)

// IntermediatePath derives the checkpoint path from the output path:
// results.csv becomes results_intermediate.csv.
func IntermediatePath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + "_intermediate" + ext
}

// CheckpointWriter rewrites the intermediate CSV after every batch so an
// interrupted run loses at most one batch of work.
type CheckpointWriter struct {
	path    string
	columns []string
}

// NewCheckpointWriter writes checkpoints to path under a fixed header.
func NewCheckpointWriter(path string, columns []string) *CheckpointWriter {
	return &CheckpointWriter{path: path, columns: columns}
}

// Path returns the checkpoint file path.
func (w *CheckpointWriter) Path() string { return w.path }

// Write replaces the checkpoint file with the given listings.
func (w *CheckpointWriter) Write(listings []model.Listing) error {
	return WriteCSV(w.path, w.columns, listings)
}
