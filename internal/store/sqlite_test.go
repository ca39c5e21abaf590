package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/circulars-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

var sebiTarget = model.Target{
	Category:  "SEBI",
	Subfolder: "Circulars",
	URL:       "https://www.sebi.gov.in/sebiweb/home/HomeAction.do?doListing=yes&sid=1&ssid=7",
}

func sampleResult() *model.RunResult {
	start := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	return &model.RunResult{
		Target: sebiTarget,
		Records: []model.Record{
			{Title: "Circular on margin obligations", IssueDate: model.NewDate(2024, time.March, 15), Confidence: 0.9,
				Category: "SEBI", SourceStrategy: model.StrategySemantic, DetailURL: "https://www.sebi.gov.in/c1.html"},
			{Title: "Framework for AIF valuation", IssueDate: model.NewDate(2024, time.March, 14), Confidence: 1,
				Category: "AIF", SourceStrategy: model.StrategySemantic, PDFURL: "https://www.sebi.gov.in/c2.pdf"},
		},
		Stats:        model.ValidationStats{TotalInput: 3, ValidCount: 2, RemovedDuplicate: 1},
		StrategyUsed: model.StrategySemantic,
		Errors:       []string{"attempt 1 (semantic): no records extracted"},
		StartedAt:    start,
		FinishedAt:   start.Add(42 * time.Second),
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sebiTarget)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sebiTarget, got.Target)
	assert.Nil(t, got.Result)

	require.NoError(t, st.CompleteRun(ctx, run.ID, sampleResult()))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 2, got.Result.Stats.ValidCount)
	assert.Equal(t, model.StrategySemantic, got.Result.StrategyUsed)
	assert.Equal(t, 42*time.Second, got.Result.Duration())
	require.Len(t, got.Result.Records, 2)
	assert.Equal(t, "Circular on margin obligations", got.Result.Records[0].Title)
	assert.Equal(t, "2024-03-15", got.Result.Records[0].IssueDate.String())
	assert.Equal(t, "AIF", got.Result.Records[1].Category)
	assert.Equal(t, "https://www.sebi.gov.in/c2.pdf", got.Result.Records[1].PDFURL)
}

func TestSQLite_CompleteRun_ReplacesRecords(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sebiTarget)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, sampleResult()))

	again := sampleResult()
	again.Records = again.Records[:1]
	require.NoError(t, st.CompleteRun(ctx, run.ID, again))

	recs, err := st.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSQLite_CompleteRun_EmptyResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sebiTarget)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, &model.RunResult{Target: sebiTarget}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusEmpty, got.Status)
	assert.Empty(t, got.Result.Records)

	recs, err := st.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sebiTarget)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "store: disk full"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "store: disk full", got.Error)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.CompleteRun(ctx, "missing", sampleResult())
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.FailRun(ctx, "missing", "x")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, st.CompleteRun(ctx, "missing", nil))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rbi := model.Target{Category: "RBI", Subfolder: "Notifications", URL: "https://rbi.org.in/notifications"}
	first, err := st.CreateRun(ctx, sebiTarget)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, rbi)
	require.NoError(t, err)
	third, err := st.CreateRun(ctx, sebiTarget)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, first.ID, sampleResult()))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sebi, err := st.ListRuns(ctx, RunFilter{Category: "SEBI"})
	require.NoError(t, err)
	assert.Len(t, sebi, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first.ID, complete[0].ID)

	running, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning, Subfolder: "Circulars"})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, third.ID, running[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
