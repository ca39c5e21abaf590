// Package store persists pipeline runs and their validated records.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	Category  string          `json:"category,omitempty"`
	Subfolder string          `json:"subfolder,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for extraction runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, target model.Target) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Records
	ListRecords(ctx context.Context, runID string) ([]model.Record, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// completedStatus maps a finished result to its persisted status.
func completedStatus(result *model.RunResult) model.RunStatus {
	if result == nil || len(result.Records) == 0 {
		return model.RunStatusEmpty
	}
	return model.RunStatusComplete
}

// storedResult is the result document kept on the run row. Records live in
// their own table.
func storedResult(result *model.RunResult) ([]byte, error) {
	if result == nil {
		return nil, eris.New("store: nil result")
	}
	doc := *result
	doc.Records = nil
	b, err := json.Marshal(doc)
	return b, eris.Wrap(err, "store: marshal result")
}
