package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/appsec-action/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "appsec-action"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# appsec-action configuration
# Run: appsec-action --help

# Base URL of the analysis service. Can also be set via APPSEC_API_BASE_URL
# or --api-url.
# api_base_url: https://api.appsecure.ai

# Bearer token for the service. Prefer APPSEC_API_TOKEN in CI; storing it
# here is for workstations only.
# api_token: ""

# Optional: override the run-history database location.
# Can also be set via APPSEC_DB_PATH or --db-path.
# db_path: ~/.config/appsec-action/runs.db
`
