package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetSettingsStateForTest() {
	settingsOnce = sync.Once{}
	settings = Settings{}
	settingsErr = nil
	SetDBPathOverride("")
}

func writeUserConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".config", "appsec-action")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoadSettingsFromUserConfig(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	writeUserConfig(t, home, "api_base_url: https://appsec.internal.acme.dev\npoll_max_retries: 10\n")

	s, err := loadSettings()
	require.NoError(t, err)
	require.Equal(t, "https://appsec.internal.acme.dev", s.APIBaseURL)
	require.Equal(t, 10, s.PollMaxRetries)
}

func TestLoadSettingsEnvOverridesFile(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	writeUserConfig(t, home, "api_base_url: https://from-file.example\n")
	t.Setenv("APPSEC_API_BASE_URL", "https://from-env.example")

	s, err := loadSettings()
	require.NoError(t, err)
	require.Equal(t, "https://from-env.example", s.APIBaseURL)
}

func TestBaseURLDefault(t *testing.T) {
	require.Equal(t, DefaultAPIBaseURL, Settings{}.BaseURL())
	require.Equal(t, "https://x.example", Settings{APIBaseURL: "https://x.example"}.BaseURL())
}

func TestGetDBPath_PrioritizesCLIOverride(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("APPSEC_DB_PATH", filepath.Join(home, "env", "runs.db"))

	overridePath := filepath.Join(home, "cli", "runs.db")
	SetDBPathOverride(overridePath)

	resolved, err := GetDBPath()
	require.NoError(t, err)
	require.Equal(t, overridePath, resolved)
}

func TestGetDBPath_UsesEnvWithoutOverride(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	envPath := filepath.Join(home, "env", "runs.db")
	t.Setenv("APPSEC_DB_PATH", envPath)

	resolved, err := GetDBPath()
	require.NoError(t, err)
	require.Equal(t, envPath, resolved)
}

func TestEnsureDBDir_CreatesParentDirectories(t *testing.T) {
	base := t.TempDir()
	dbPath := filepath.Join(base, "nested", "deep", "runs.db")

	resolved, err := EnsureDBDir(dbPath)
	require.NoError(t, err)
	require.Equal(t, dbPath, resolved)
	require.DirExists(t, filepath.Dir(dbPath))
}
