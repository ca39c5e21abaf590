package main

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "batch", "runs", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "circulars", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	// main prints errors once itself and stays quiet for exitError.
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"category", "subfolder", "url", "feed-url", "weeks-back", "max-retries", "download", "no-vision"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run should have --%s", name)
	}
	assert.Equal(t, "SEBI", runCmd.Flags().Lookup("category").DefValue)

	weeks := runCmd.Flags().Lookup("weeks-back")
	assert.Equal(t, "0", weeks.DefValue)
	assert.Contains(t, weeks.Usage, "this Monday through today")
	assert.NotContains(t, weeks.Usage, "keeps all")
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("targets")
	require.NotNil(t, flag, "batch command should have --targets flag")
	assert.Equal(t, "targets.yaml", flag.DefValue)
	assert.NotNil(t, batchCmd.Flags().Lookup("weeks-back"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(&exitError{code: 2}))
	assert.Equal(t, 2, exitCode(eris.Wrap(&exitError{code: 2}, "batch")))
	assert.Equal(t, "exit status 2", (&exitError{code: 2}).Error())
}
