package auth

import (
	"context"
	"os"
	"strings"
)

// TokenEnvVar is consulted first for the API bearer token, matching how CI
// runners inject secrets.
const TokenEnvVar = "APPSEC_API_TOKEN"

// Provider resolves a bearer token for an API base URL. An empty token means
// anonymous access; the caller decides whether that is acceptable.
type Provider func(ctx context.Context, baseURL string) (string, error)

// Static returns a provider that always hands back the same token.
func Static(token string) Provider {
	return func(ctx context.Context, baseURL string) (string, error) {
		return token, nil
	}
}

// FromEnv returns a provider that reads TokenEnvVar, falling back to the
// given settings token. Per-host overrides use APPSEC_API_TOKEN_<HOST> with
// dots and dashes mapped to underscores, so one environment can address
// several deployments.
func FromEnv(settingsToken string) Provider {
	return func(ctx context.Context, baseURL string) (string, error) {
		if host := hostKey(baseURL); host != "" {
			if v := os.Getenv(TokenEnvVar + "_" + host); v != "" {
				return v, nil
			}
		}
		if v := os.Getenv(TokenEnvVar); v != "" {
			return v, nil
		}
		return settingsToken, nil
	}
}

func hostKey(baseURL string) string {
	s := baseURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}
	s = strings.ToUpper(s)
	s = strings.NewReplacer(".", "_", "-", "_").Replace(s)
	return s
}
