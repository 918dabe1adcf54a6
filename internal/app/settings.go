package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment overrides, e.g. APPSEC_API_BASE_URL.
const envPrefix = "appsec"

// DefaultAPIBaseURL is the hosted service endpoint.
const DefaultAPIBaseURL = "https://api.appsecure.ai"

// Settings represents configuration loaded from config.yaml, with environment
// variables layered on top. Field names match snake_case YAML keys.
type Settings struct {
	APIBaseURL string `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	APIToken   string `yaml:"api_token" envconfig:"API_TOKEN"`
	DBPath     string `yaml:"db_path" envconfig:"DB_PATH"`

	PollMaxRetries      int `yaml:"poll_max_retries" envconfig:"POLL_MAX_RETRIES"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds" envconfig:"POLL_INTERVAL_SECONDS"`
	FinalizeMaxRetries  int `yaml:"finalize_max_retries" envconfig:"FINALIZE_MAX_RETRIES"`
}

// BaseURL returns the configured API base URL or the hosted default.
func (s Settings) BaseURL() string {
	if s.APIBaseURL != "" {
		return s.APIBaseURL
	}
	return DefaultAPIBaseURL
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// dbPathOverrideMu and dbPathOverride implement a mutex-protected process-wide override for CLI --db-path.
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	dbPathOverrideMu sync.RWMutex
	dbPathOverride   string
)

// SetDBPathOverride sets a process-wide database path override.
// Intended for CLI flag support (e.g. --db-path).
func SetDBPathOverride(path string) {
	dbPathOverrideMu.Lock()
	dbPathOverride = path
	dbPathOverrideMu.Unlock()
}

func getDBPathOverride() string {
	dbPathOverrideMu.RLock()
	v := dbPathOverride
	dbPathOverrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/appsec-action/config.yaml
// 2) /etc/appsec-action/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// APPSEC_* environment variables override whichever file was loaded.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings, settingsErr = loadSettings()
	})
	return settings, settingsErr
}

func loadSettings() (Settings, error) {
	s := Settings{}

	dir, err := ConfigDir()
	if err != nil {
		return Settings{}, err
	}

	paths := []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "appsec-action", "config.yaml"),
		"config.yaml",
	}
	for _, p := range paths {
		loaded, err := loadSettingsFile(p)
		if err == nil {
			s = loaded
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, err
		}
	}

	if err := envconfig.Process(envPrefix, &s); err != nil {
		return Settings{}, fmt.Errorf("apply environment overrides: %w", err)
	}
	return s, nil
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
