package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "circulars",
	Short: "Regulatory circulars extraction pipeline",
	Long: "Loads regulator listing pages, extracts dated announcements through a structured feed, " +
		"an LLM over the page HTML or a screenshot, validates them and delivers them to files, S3, Kafka and the run store.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// exitError carries a non-zero process exit status out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func main() {
	err := rootCmd.Execute()
	var ee *exitError
	if err != nil && !errors.As(err, &ee) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
