package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_SemverOrDev(t *testing.T) {
	if Version == "dev" {
		return
	}
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`), Version)
}

func withBuild(t *testing.T, v, commit, date string) {
	t.Helper()
	oldV, oldC, oldD := Version, Commit, Date
	Version, Commit, Date = v, commit, date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
}

func TestString_IncludesBuildInfo(t *testing.T) {
	// Given: ldflags-style build values
	withBuild(t, "1.4.0", "abc1234", "2026-01-02T03:04:05Z")

	// When / Then: every value appears in the long form
	assert.Equal(t,
		"amanscout 1.4.0 (commit: abc1234, built: 2026-01-02T03:04:05Z, go: "+GoVersion+")",
		String())
	assert.Equal(t, "1.4.0", Short())
	assert.Equal(t, "amanscout/1.4.0", UserAgent())
}

func TestGetInfo_JSON(t *testing.T) {
	// Given: ldflags-style build values
	withBuild(t, "1.4.0", "abc1234", "2026-01-02T03:04:05Z")

	// When: encoding the build info
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	// Then: the runtime platform is filled in
	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]string{
		"version":    "1.4.0",
		"commit":     "abc1234",
		"date":       "2026-01-02T03:04:05Z",
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}, got)
}
