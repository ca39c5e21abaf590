package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/circulars-cli/internal/download"
	"github.com/sells-group/circulars-cli/internal/model"
)

type fakePipeline struct {
	res *model.RunResult
	err error
}

func (f *fakePipeline) Run(context.Context, model.Target) (*model.RunResult, error) {
	return f.res, f.err
}

type fakeDownloader struct {
	calls int
}

func (f *fakeDownloader) Download(_ context.Context, _ model.Target, records []model.Record) download.Result {
	f.calls++
	var res download.Result
	for i := range records {
		res.Artifacts = append(res.Artifacts, model.Artifact{RecordIndex: i, Path: "/d/x.pdf", FileName: "x.pdf"})
		res.Downloaded++
	}
	return res
}

type fakeSink struct {
	written []*model.RunResult
	err     error
}

func (f *fakeSink) Write(_ context.Context, res *model.RunResult) error {
	f.written = append(f.written, res)
	return f.err
}

func (f *fakeSink) Close() error { return nil }

func TestRunner_Success(t *testing.T) {
	st := newTestStore(t)
	dl := &fakeDownloader{}
	sk := &fakeSink{}
	r := &runner{store: st, pipeline: &fakePipeline{res: sampleResult()}, downloader: dl, sinks: sk}

	runID, res, err := r.Run(context.Background(), sebi)
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	assert.Equal(t, 1, dl.calls)
	assert.Len(t, res.Artifacts, 2)
	require.Len(t, sk.written, 1)
	assert.Len(t, sk.written[0].Artifacts, 2, "sinks see the artifacts")

	run, err := st.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Len(t, run.Result.Records, 2)
	assert.Len(t, run.Result.Artifacts, 2)
}

func TestRunner_NoRecordsSkipsDownload(t *testing.T) {
	st := newTestStore(t)
	dl := &fakeDownloader{}
	r := &runner{store: st, pipeline: &fakePipeline{res: &model.RunResult{Target: sebi}}, downloader: dl}

	runID, res, err := r.Run(context.Background(), sebi)
	require.NoError(t, err)
	assert.Zero(t, dl.calls)
	assert.Equal(t, model.ExitNoRecords, res.ExitStatus())

	run, err := st.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusEmpty, run.Status)
}

func TestRunner_SinkFailureBecomesRunError(t *testing.T) {
	st := newTestStore(t)
	r := &runner{store: st, pipeline: &fakePipeline{res: sampleResult()}, sinks: &fakeSink{err: errors.New("kafka down")}}

	_, res, err := r.Run(context.Background(), sebi)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "kafka down")
	assert.Equal(t, model.ExitWithError, res.ExitStatus())
}

func TestRunner_PipelineErrorFailsRun(t *testing.T) {
	st := newTestStore(t)
	r := &runner{store: st, pipeline: &fakePipeline{err: errors.New("pipeline: target url is required")}}

	runID, res, err := r.Run(context.Background(), model.Target{Category: "SEBI"})
	require.Error(t, err)
	assert.Nil(t, res)
	require.NotEmpty(t, runID)

	run, err := st.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "target url is required")
}
