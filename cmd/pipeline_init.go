package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/download"
	"github.com/sells-group/circulars-cli/internal/extract"
	"github.com/sells-group/circulars-cli/internal/fetcher"
	"github.com/sells-group/circulars-cli/internal/pipeline"
	"github.com/sells-group/circulars-cli/internal/probe"
	"github.com/sells-group/circulars-cli/internal/scrape"
	"github.com/sells-group/circulars-cli/internal/sink"
	"github.com/sells-group/circulars-cli/internal/store"
	"github.com/sells-group/circulars-cli/internal/validate"
	anthropicpkg "github.com/sells-group/circulars-cli/pkg/anthropic"
	"github.com/sells-group/circulars-cli/pkg/firecrawl"
	"github.com/sells-group/circulars-cli/pkg/jina"
)

// pipelineEnv holds the store, the orchestrator and the delivery side
// needed by the run and batch commands.
type pipelineEnv struct {
	Store  store.Store
	Runner *runner
	Sinks  sink.Multi
}

// Close flushes the sinks and releases the store.
func (pe *pipelineEnv) Close() error {
	var errs []error
	if pe.Sinks != nil {
		errs = append(errs, pe.Sinks.Close())
	}
	if pe.Store != nil {
		errs = append(errs, pe.Store.Close())
	}
	return errors.Join(errs...)
}

// initPipeline validates configuration, then builds every collaborator of
// the run. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	rules := validate.RulesFromConfig(cfg.Rules)
	validator, err := validate.New(rules)
	if err != nil {
		return nil, err
	}

	policy := pipeline.Policy{
		MaxRetries:     cfg.Pipeline.MaxRetries,
		AttemptTimeout: cfg.Pipeline.AttemptTimeout(),
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetcher.UserAgent,
		Timeout:    time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetcher.MaxRetries,
		RatePerSec: cfg.Fetcher.RatePerSec,
	})

	// Scrape chain: direct fetch, then Jina render, then Firecrawl.
	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(f),
		scrape.NewJinaAdapter(jinaClient, cfg.Jina.WaitForSelector),
	}
	shooters := []scrape.Screenshotter{scrape.NewJinaShooter(jinaClient, f, true)}

	if cfg.Firecrawl.Key != "" {
		fcClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fcClient, cfg.Firecrawl.WaitForMs))
		shooters = append([]scrape.Screenshotter{scrape.NewFirecrawlShooter(fcClient, f, cfg.Firecrawl.WaitForMs)}, shooters...)
	} else {
		zap.L().Debug("CIRCULARS_FIRECRAWL_KEY not set, firecrawl fallback disabled")
	}
	chain := scrape.NewChain(scrapers...)

	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	llm := extract.LLMConfig{
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Anthropic.MaxTokens,
		MaxHTMLChars: cfg.Pipeline.MaxHTMLChars,
		CacheTTL:     cfg.Anthropic.CacheTTL,
	}

	opts := []pipeline.Option{
		pipeline.WithLoader(chain),
		pipeline.WithProber(probe.New(f)),
		pipeline.WithStructured(extract.NewStructured()),
	}
	if cfg.Pipeline.Vision {
		vision := llm
		if cfg.Anthropic.VisionModel != "" {
			vision.Model = cfg.Anthropic.VisionModel
		}
		opts = append(opts, pipeline.WithVisual(
			extract.NewVisual(aiClient, scrape.NewScreenshotChain(shooters...), vision)))
	}

	orch, err := pipeline.New(policy, validator, extract.NewSemantic(aiClient, llm), opts...)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	sinks, uploader, err := buildSinks(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	r := &runner{store: st, pipeline: orch, sinks: sinks}
	if cfg.Download.Enabled {
		var dopts []download.Option
		if uploader != nil {
			dopts = append(dopts, download.WithUploader(uploader))
		}
		r.downloader = download.New(f, cfg.Download.Dir, dopts...)
	}

	zap.L().Info("pipeline initialized",
		zap.Int("max_retries", policy.MaxRetries),
		zap.Int("weeks_back", rules.WeeksBack),
		zap.Bool("vision", cfg.Pipeline.Vision),
		zap.Bool("download", cfg.Download.Enabled),
		zap.Int("sinks", len(sinks)),
	)

	return &pipelineEnv{Store: st, Runner: r, Sinks: sinks}, nil
}

// buildSinks creates every configured downstream sink. The S3 sink doubles
// as the artifact uploader.
func buildSinks(ctx context.Context) (sink.Multi, download.Uploader, error) {
	var sinks sink.Multi
	var uploader download.Uploader

	if cfg.Output.JSONDir != "" {
		sinks = append(sinks, sink.NewJSONFile(cfg.Output.JSONDir))
	}
	if cfg.Output.XLSXPath != "" {
		sinks = append(sinks, sink.NewXLSXReport(cfg.Output.XLSXPath))
	}
	if cfg.S3.Bucket != "" {
		s3Sink, err := sink.NewS3(ctx, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Region)
		if err != nil {
			_ = sinks.Close()
			return nil, nil, err
		}
		sinks = append(sinks, s3Sink)
		uploader = s3Sink
	}
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := sink.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			_ = sinks.Close()
			return nil, nil, eris.Wrap(err, "init kafka sink")
		}
		sinks = append(sinks, k)
	}
	return sinks, uploader, nil
}
