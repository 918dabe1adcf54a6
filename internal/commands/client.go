package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/AppSecureAI/automation-action/internal/api"
	"github.com/AppSecureAI/automation-action/internal/app"
	"github.com/AppSecureAI/automation-action/internal/auth"
)

// flagString reads a string flag, treating lookup errors as unset.
func flagString(flags *pflag.FlagSet, name string) string {
	v, err := flags.GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// newClient builds the API client from persistent flags, settings, and the
// environment. Flags win over environment and config.
func newClient(cmd *cobra.Command) (*api.Client, app.Settings, error) {
	settings, err := app.LoadSettings()
	if err != nil {
		return nil, app.Settings{}, err
	}

	baseURL := settings.BaseURL()
	if v := flagString(cmd.Flags(), "api-url"); v != "" {
		baseURL = v
	}

	var token api.TokenProvider
	if v := flagString(cmd.Flags(), "token"); v != "" {
		token = api.TokenProvider(auth.Static(v))
	} else {
		token = api.TokenProvider(auth.FromEnv(settings.APIToken))
	}

	return api.NewClient(api.Options{BaseURL: baseURL, Token: token}), settings, nil
}
