// internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := NewConfigFromViper(newDefaultViper())
	require.NoError(t, err)

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, 10, cfg.Resolver.WindowSize)
	assert.Equal(t, 50, cfg.Search.MaxMatches)
	assert.Equal(t, []string{"php", "py", "go"}, cfg.Search.Extensions)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.LLM.APITimeout)
	assert.Equal(t, 5*time.Second, cfg.GitHub.Timeout)
	assert.False(t, cfg.GitHub.Enabled())
}

func TestConfigFromYAML(t *testing.T) {
	yaml := []byte(`
github:
  owner: acme
  repo: shop
  ref: release
local:
  base_path: /srv/src
  path_maps:
    - from: /home/x
      to: /srv/src
resolver:
  window_size: 5
llm:
  provider: gemini
  model: gemini-1.5-pro
`)
	v := newDefaultViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.GitHub.Enabled())
	assert.Equal(t, "release", cfg.GitHub.Ref)
	assert.Equal(t, "/srv/src", cfg.Local.BasePath)
	require.Len(t, cfg.Local.PathMaps, 1)
	assert.Equal(t, "/home/x", cfg.Local.PathMaps[0].From)
	assert.Equal(t, 5, cfg.Resolver.WindowSize)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
}

func TestSecretsComeFromEnvironment(t *testing.T) {
	t.Setenv("CRASHLENS_GITHUB_TOKEN", "gh-secret")
	t.Setenv("CRASHLENS_LLM_API_KEY", "llm-secret")

	cfg, err := NewConfigFromViper(newDefaultViper())
	require.NoError(t, err)

	assert.Equal(t, "gh-secret", cfg.GitHub.Token)
	assert.Equal(t, "llm-secret", cfg.LLM.APIKey)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{
			name:    "Negative Window",
			mutate:  func(v *viper.Viper) { v.Set("resolver.window_size", -1) },
			wantErr: "resolver.window_size",
		},
		{
			name:    "Zero Max Matches",
			mutate:  func(v *viper.Viper) { v.Set("search.max_matches", 0) },
			wantErr: "search.max_matches",
		},
		{
			name:    "Zero Concurrency",
			mutate:  func(v *viper.Viper) { v.Set("search.concurrency", 0) },
			wantErr: "search.concurrency",
		},
		{
			name:    "Unknown Provider",
			mutate:  func(v *viper.Viper) { v.Set("llm.provider", "oracle") },
			wantErr: "llm.provider",
		},
		{
			name: "Path Map Without From",
			mutate: func(v *viper.Viper) {
				v.Set("local.path_maps", []map[string]string{{"from": "", "to": "/srv"}})
			},
			wantErr: "path_maps",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := newDefaultViper()
			tc.mutate(v)
			_, err := NewConfigFromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
