package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/circulars-cli/internal/config"
	"github.com/sells-group/circulars-cli/internal/model"
	"github.com/sells-group/circulars-cli/internal/store"
)

// useConfig installs c as the command config for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	useConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "runs.db"),
	}})
	st, err := initStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

var sebi = model.Target{Category: "SEBI", Subfolder: "Circulars", URL: "https://www.sebi.gov.in/circulars"}

func sampleResult() *model.RunResult {
	start := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	return &model.RunResult{
		Target: sebi,
		Records: []model.Record{
			{Title: "Circular on margin obligations", IssueDate: model.NewDate(2024, time.March, 15), Confidence: 0.9,
				Category: "SEBI", SourceStrategy: model.StrategySemantic, PDFURL: "https://www.sebi.gov.in/c1.pdf"},
			{Title: "Framework for AIF valuation", IssueDate: model.NewDate(2024, time.March, 14), Confidence: 1,
				Category: "AIF", SourceStrategy: model.StrategySemantic},
		},
		Stats:        model.ValidationStats{TotalInput: 4, ValidCount: 2, RemovedDuplicate: 1, OutOfWindow: 1},
		StrategyUsed: model.StrategySemantic,
		Window:       model.DateWindow{Start: model.NewDate(2024, time.March, 6), End: model.NewDate(2024, time.March, 20)},
		Attempts:     []model.Attempt{{Strategy: model.StrategySemantic}},
		StartedAt:    start,
		FinishedAt:   start.Add(3 * time.Second),
	}
}
