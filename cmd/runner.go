package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/download"
	"github.com/sells-group/circulars-cli/internal/model"
	"github.com/sells-group/circulars-cli/internal/sink"
	"github.com/sells-group/circulars-cli/internal/store"
)

// targetPipeline is the extraction cascade for one target.
type targetPipeline interface {
	Run(ctx context.Context, target model.Target) (*model.RunResult, error)
}

// artifactDownloader saves the PDFs of a run.
type artifactDownloader interface {
	Download(ctx context.Context, target model.Target, records []model.Record) download.Result
}

// runner drives one target from run creation to delivery.
type runner struct {
	store      store.Store
	pipeline   targetPipeline
	downloader artifactDownloader // nil when downloads are disabled
	sinks      sink.Sink          // may be nil
}

// Run extracts target and persists the outcome. The returned run id is
// set whenever the run row was created.
func (r *runner) Run(ctx context.Context, target model.Target) (string, *model.RunResult, error) {
	run, err := r.store.CreateRun(ctx, target)
	if err != nil {
		return "", nil, eris.Wrap(err, "create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("target", target.Key()))

	res, err := r.pipeline.Run(ctx, target)
	if err != nil {
		if fErr := r.store.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); fErr != nil {
			log.Warn("failed to mark run failed", zap.Error(fErr))
		}
		return run.ID, nil, eris.Wrap(err, "pipeline run")
	}

	if r.downloader != nil && len(res.Records) > 0 {
		dl := r.downloader.Download(ctx, target, res.Records)
		res.Artifacts = dl.Artifacts
		log.Info("artifacts downloaded",
			zap.Int("downloaded", dl.Downloaded),
			zap.Int("skipped", dl.Skipped),
			zap.Int("records", len(res.Records)),
		)
	}

	if r.sinks != nil {
		if err := r.sinks.Write(ctx, res); err != nil {
			log.Error("sink delivery failed", zap.Error(err))
			res.Errors = append(res.Errors, "sink: "+err.Error())
		}
	}

	if err := r.store.CompleteRun(context.WithoutCancel(ctx), run.ID, res); err != nil {
		return run.ID, res, eris.Wrap(err, "complete run")
	}
	return run.ID, res, nil
}
