package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"ingest", "aggregate", "features", "cluster", "run", "export", "serve", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "reviewpower", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("no-store"))
}

func TestSourceFlags(t *testing.T) {
	for _, flag := range []string{"source"} {
		f := aggregateCmd.Flags().Lookup(flag)
		require.NotNil(t, f)
		assert.Equal(t, "files", f.DefValue)

		f = runCmd.Flags().Lookup(flag)
		require.NotNil(t, f)
		assert.Equal(t, "files", f.DefValue)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("from-store"))
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "[xlsx,shp]", flag.DefValue)
}

func TestRunsCommand_Flags(t *testing.T) {
	for _, name := range []string{"stage", "status", "limit", "json"} {
		assert.NotNil(t, runsCmd.Flags().Lookup(name), "runs should have --%s flag", name)
	}
}

func TestRunsCommand_HasHealth(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["health"])
}
