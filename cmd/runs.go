package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/circulars-cli/internal/model"
	"github.com/sells-group/circulars-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect extraction run history",
	Long:  "Commands for listing, viewing, and summarizing extraction runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List extraction runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		category, _ := cmd.Flags().GetString("category")
		subfolder, _ := cmd.Flags().GetString("subfolder")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:    model.RunStatus(status),
			Category:  category,
			Subfolder: subfolder,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run, records included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		category, _ := cmd.Flags().GetString("category")
		runs, err := st.ListRuns(ctx, store.RunFilter{Category: category, Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, empty, failed)")
	runsListCmd.Flags().String("category", "", "filter by category")
	runsListCmd.Flags().String("subfolder", "", "filter by subfolder")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().String("category", "", "filter by category")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Complete   int
	Empty      int
	Failed     int
	Running    int
	WithErrors int
	Records    int
	AvgDurSecs float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete, model.RunStatusEmpty:
			if r.Status == model.RunStatusComplete {
				s.Complete++
			} else {
				s.Empty++
			}
			if r.Result != nil && len(r.Result.Errors) > 0 {
				s.WithErrors++
			}
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
		if r.Result != nil {
			s.Records += r.Result.Stats.ValidCount
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTARGET\tSTATUS\tRECORDS\tSTRATEGY\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		records, strategy := "-", "-"
		if r.Result != nil {
			records = fmt.Sprint(r.Result.Stats.ValidCount)
			strategy = orDash(string(r.Result.StrategyUsed))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			truncate(r.Target.Key(), 30),
			r.Status,
			records,
			strategy,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Empty:\t%d\n", s.Empty)
	_, _ = fmt.Fprintf(w, "  With errors:\t%d\n", s.WithErrors)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", s.Records)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
