// Package sink delivers finished runs downstream to files, object storage
// and Kafka.
package sink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/model"
)

// Sink receives every completed run.
type Sink interface {
	Write(ctx context.Context, result *model.RunResult) error
	Close() error
}

// Multi writes to each sink in order and joins their errors. A failing
// sink does not stop the others.
type Multi []Sink

func (m Multi) Write(ctx context.Context, result *model.RunResult) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const stampLayout = "20060102T150405Z"

// stamp is the UTC timestamp used in output names.
func stamp(result *model.RunResult) string {
	t := result.FinishedAt
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(stampLayout)
}

// slug keeps a category or subfolder usable as a single path segment.
func slug(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "default"
	}
	return strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(s)
}

func checkResult(result *model.RunResult) error {
	if result == nil {
		return eris.New("sink: nil result")
	}
	return nil
}
