package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanscout/pkg/version"
)

func TestMarker_Lifecycle(t *testing.T) {
	// Given: a data directory without a marker
	dir := t.TempDir()
	assert.True(t, NeedsCheck(dir))
	assert.Zero(t, MarkerAge(dir))

	// When: the checks pass
	require.NoError(t, MarkPassed(dir))

	// Then: serve skips them until the marker is cleared
	assert.False(t, NeedsCheck(dir))
	require.NoError(t, ClearMarker(dir))
	assert.True(t, NeedsCheck(dir))
	assert.NoError(t, ClearMarker(dir), "clearing twice is fine")
}

func TestMarkPassed_CreatesFile(t *testing.T) {
	// Given: an empty directory
	tmpDir := t.TempDir()

	// When: marking as passed
	err := MarkPassed(tmpDir)

	// Then: marker file exists
	require.NoError(t, err)
	markerPath := filepath.Join(tmpDir, MarkerFile)
	assert.FileExists(t, markerPath)

	// And: records the version and a valid timestamp
	content, err := os.ReadFile(markerPath)
	require.NoError(t, err)
	ver, stamp, ok := strings.Cut(string(content), " ")
	require.True(t, ok)
	assert.Equal(t, version.Version, ver)
	_, err = time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err)
}

func TestMarkPassed_CreatesDataDir(t *testing.T) {
	// Given: a non-existent data directory
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "subdir", ".amanscout")

	// When: marking as passed
	err := MarkPassed(dataDir)

	// Then: directory and marker file are created
	require.NoError(t, err)
	assert.DirExists(t, dataDir)
	assert.FileExists(t, filepath.Join(dataDir, MarkerFile))
}

func TestMarkerAge_WithMarker(t *testing.T) {
	// Given: a marker file that was just created
	tmpDir := t.TempDir()
	require.NoError(t, MarkPassed(tmpDir))

	// When: checking age
	age := MarkerAge(tmpDir)

	// Then: age is very small (just created)
	assert.Less(t, age, 2*time.Second)
}

func TestNeedsCheck_OtherVersion(t *testing.T) {
	// Given: a marker written by another build
	tmpDir := t.TempDir()
	content := "v0.0.1 " + time.Now().Format(time.RFC3339)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, MarkerFile), []byte(content), 0o644))

	// Then: checks run again unless the versions match
	assert.Equal(t, version.Version != "v0.0.1", NeedsCheck(tmpDir))
}

func TestNeedsCheck_CorruptMarker(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, MarkerFile), []byte("garbage"), 0o644))

	assert.True(t, NeedsCheck(tmpDir))
	assert.Zero(t, MarkerAge(tmpDir))
}
