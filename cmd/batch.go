package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
	"github.com/sells-group/circulars-cli/internal/targets"
)

var batchTargets string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract announcements for every target in a YAML, XLSX or CSV file",
	Long: "Runs targets strictly one after another. The exit status is the highest status of any run; " +
		"a target that fails outright counts as 1.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		list, err := targets.Load(batchTargets)
		if err != nil {
			return err
		}

		applyRunFlags(cmd)

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		if code := processBatch(ctx, list, env.Runner.Run); code != model.ExitOK {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchTargets, "targets", "targets.yaml", "target list (.yaml, .yml, .xlsx or .csv)")
	addPipelineFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

// runFunc is the callback signature for running one target.
type runFunc func(ctx context.Context, target model.Target) (string, *model.RunResult, error)

// processBatch runs targets sequentially and returns the worst exit status.
// A cancelled context stops the batch before the next target.
func processBatch(ctx context.Context, list []model.Target, run runFunc) int {
	if len(list) == 0 {
		zap.L().Info("no targets found")
		return model.ExitNoRecords
	}

	zap.L().Info("processing batch", zap.Int("targets", len(list)))

	worst := model.ExitOK
	var succeeded, failed, records int
	for i, target := range list {
		if ctx.Err() != nil {
			zap.L().Warn("batch interrupted", zap.Int("remaining", len(list)-i))
			worst = max(worst, model.ExitWithError)
			break
		}
		log := zap.L().With(zap.String("target", target.Key()), zap.Int("index", i))

		runID, res, err := run(ctx, target)
		if err != nil {
			failed++
			worst = max(worst, model.ExitWithError)
			log.Error("run failed", zap.String("run_id", runID), zap.Error(err))
			continue // don't abort batch on individual failure
		}

		succeeded++
		records += len(res.Records)
		worst = max(worst, res.ExitStatus())
		log.Info("run complete",
			zap.String("run_id", runID),
			zap.Int("records", len(res.Records)),
			zap.Int("errors", len(res.Errors)),
			zap.String("strategy", string(res.StrategyUsed)),
		)
	}

	zap.L().Info("batch complete",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("records", records),
		zap.Int("exit_status", worst),
	)
	return worst
}
