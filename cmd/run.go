package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/config"
	"github.com/sells-group/circulars-cli/internal/model"
)

var (
	runCategory  string
	runSubfolder string
	runURL       string
	runFeedURL   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract announcements from a single listing page",
	Long: "Runs the extraction cascade for one target, prints a summary table and exits 0 when records " +
		"were found without errors, 1 when records came with errors and 2 when nothing was found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRunFlags(cmd)

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		target := model.Target{
			Category:  runCategory,
			Subfolder: runSubfolder,
			URL:       runURL,
			FeedURL:   runFeedURL,
		}

		runID, res, err := env.Runner.Run(ctx, target)
		if err != nil {
			return err
		}

		printSummary(os.Stdout, runID, res)
		if code := res.ExitStatus(); code != model.ExitOK {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runCategory, "category", "SEBI", "vertical the records are filed under")
	runCmd.Flags().StringVar(&runSubfolder, "subfolder", "Circulars", "sub-category folder")
	runCmd.Flags().StringVar(&runURL, "url", config.DefaultSEBIURL, "listing page URL")
	runCmd.Flags().StringVar(&runFeedURL, "feed-url", "", "known JSON or RSS endpoint for the listing")
	addPipelineFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addPipelineFlags registers the per-run overrides shared by run and batch.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("weeks-back", 0, "keep records from the last N weeks (0 keeps this Monday through today)")
	cmd.Flags().Int("max-retries", 3, "attempts allowed after the first, across strategies")
	cmd.Flags().Bool("download", false, "download each record's PDF")
	cmd.Flags().Bool("no-vision", false, "disable the screenshot strategy")
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("weeks-back") {
		cfg.Rules.WeeksBack, _ = flags.GetInt("weeks-back")
	}
	if flags.Changed("max-retries") {
		cfg.Pipeline.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("download") {
		cfg.Download.Enabled, _ = flags.GetBool("download")
	}
	if noVision, _ := flags.GetBool("no-vision"); noVision {
		cfg.Pipeline.Vision = false
	}
	zap.L().Debug("run overrides applied",
		zap.Int("weeks_back", cfg.Rules.WeeksBack),
		zap.Int("max_retries", cfg.Pipeline.MaxRetries),
		zap.Bool("download", cfg.Download.Enabled),
	)
}

// printSummary writes the validated records and run statistics as a table.
func printSummary(out io.Writer, runID string, res *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "#\tISSUE DATE\tCATEGORY\tCONF\tTITLE\tPDF")
	_, _ = fmt.Fprintln(w, "-\t----------\t--------\t----\t-----\t---")

	downloaded := make(map[int]string, len(res.Artifacts))
	for _, a := range res.Artifacts {
		if a.Downloaded() {
			downloaded[a.RecordIndex] = a.FileName
		}
	}
	for i, r := range res.Records {
		pdf := r.PDFURL
		if name, ok := downloaded[i]; ok {
			pdf = name
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			i+1,
			r.IssueDate.Format("02-01-2006"),
			r.Category,
			r.Confidence,
			truncate(r.Title, 70),
			pdf,
		)
	}
	_, _ = fmt.Fprintln(w)

	s := res.Stats
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", truncateID(runID))
	_, _ = fmt.Fprintf(w, "Target:\t%s\n", res.Target.Key())
	_, _ = fmt.Fprintf(w, "Strategy:\t%s\n", orDash(string(res.StrategyUsed)))
	_, _ = fmt.Fprintf(w, "Attempts:\t%d\n", len(res.Attempts))
	if !res.Window.Start.IsZero() {
		_, _ = fmt.Fprintf(w, "Window:\t%s .. %s\n", res.Window.Start, res.Window.End)
	}
	_, _ = fmt.Fprintf(w, "Extracted:\t%d\n", s.TotalInput)
	_, _ = fmt.Fprintf(w, "Valid:\t%d\n", s.ValidCount)
	_, _ = fmt.Fprintf(w, "  Empty title:\t%d\n", s.RemovedEmptyTitle)
	_, _ = fmt.Fprintf(w, "  Bad date:\t%d\n", s.RemovedUnrealisticDate)
	_, _ = fmt.Fprintf(w, "  Duplicate:\t%d\n", s.RemovedDuplicate)
	_, _ = fmt.Fprintf(w, "  Excluded:\t%d\n", s.ExcludedByKeyword)
	_, _ = fmt.Fprintf(w, "  Out of window:\t%d\n", s.OutOfWindow)
	_, _ = fmt.Fprintf(w, "Remapped:\t%d\n", s.RemappedCategory)
	if len(res.Artifacts) > 0 {
		_, _ = fmt.Fprintf(w, "Downloaded:\t%d/%d\n", len(downloaded), len(res.Artifacts))
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", res.Duration().Round(100*time.Millisecond))
	for _, e := range res.Errors {
		_, _ = fmt.Fprintf(w, "Error:\t%s\n", e)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
