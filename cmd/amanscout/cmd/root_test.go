package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/pkg/version"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command
	isolate(t)

	// When: executing with --help
	stdout, _, err := execute(t, "--help")

	// Then: usage lists every subcommand
	require.NoError(t, err)
	for _, sub := range []string{"research", "serve", "history", "doctor", "config", "logs", "setup", "version"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Equal(t, "amanscout version "+version.Version+"\n", stdout)
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "crawl")

	assert.Error(t, err)
}

func TestRootCmd_ConfigFlagLoadsFile(t *testing.T) {
	// Given: a config file with a custom default count
	isolate(t)
	path := filepath.Join(t.TempDir(), "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  default_count: 1\n"), 0o644))

	// When: showing the effective config through --config
	stdout, _, err := execute(t, "--config", path, "config", "show", "--json")

	// Then: the file's value is used
	require.NoError(t, err)
	assert.Contains(t, stdout, `"default_count": 1`)
}

func TestRootCmd_ConfigFlagMissingFile(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show")

	assert.Error(t, err)
}

func TestRootCmd_ProfilesWritten(t *testing.T) {
	// Given: profile paths
	isolate(t)
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	// When: running a command with profiling
	_, _, err := execute(t, "--profile-cpu", cpu, "--profile-mem", heap, "version", "--short")

	// Then: both profiles exist
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, heap)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer

	printError(&buf, scerrors.New(scerrors.ErrCodeInvalidRequest, "query must not be empty", nil))
	assert.Contains(t, buf.String(), "Error: query must not be empty")
	assert.Contains(t, buf.String(), "Code: "+scerrors.ErrCodeInvalidRequest)

	buf.Reset()
	printError(&buf, errors.New("unknown flag: --nope"))
	assert.Equal(t, "Error: unknown flag: --nope\n", buf.String())
}
