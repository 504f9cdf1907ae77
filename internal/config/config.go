// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full, immutable application configuration. It is loaded once
// at startup and passed explicitly to component constructors; no component
// reads viper or the environment on its own.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	GitHub   GitHubConfig   `mapstructure:"github" yaml:"github"`
	Local    LocalConfig    `mapstructure:"local" yaml:"local"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig holds the configuration for the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// GitHubConfig scopes the remote repository adapter to one repository. Token
// is bound to CRASHLENS_GITHUB_TOKEN and never written back to disk.
type GitHubConfig struct {
	Token string `mapstructure:"token" yaml:"-"`
	Owner string `mapstructure:"owner" yaml:"owner"`
	Repo  string `mapstructure:"repo" yaml:"repo"`
	Ref   string `mapstructure:"ref" yaml:"ref"`
	// BasePath is the deployment root that stack-trace paths carry; it is
	// stripped to produce repository-relative paths.
	BasePath          string        `mapstructure:"base_path" yaml:"base_path"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// Enabled reports whether the remote adapter is configured at all.
func (g GitHubConfig) Enabled() bool {
	return g.Owner != "" && g.Repo != ""
}

// PathMapping is one from-root/to-root pair for the path translator.
type PathMapping struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
}

// LocalConfig configures the local filesystem adapter.
type LocalConfig struct {
	// BasePath is the root the mounted source tree lives under. "~" expands
	// to the user's home directory.
	BasePath string        `mapstructure:"base_path" yaml:"base_path"`
	PathMaps []PathMapping `mapstructure:"path_maps" yaml:"path_maps"`
}

// ResolverConfig tunes the context resolver.
type ResolverConfig struct {
	// WindowSize is the number of lines included on each side of the target
	// line.
	WindowSize int `mapstructure:"window_size" yaml:"window_size"`
}

// SearchConfig tunes the pattern search engine.
type SearchConfig struct {
	MaxMatches     int      `mapstructure:"max_matches" yaml:"max_matches"`
	PerFileMatches int      `mapstructure:"per_file_matches" yaml:"per_file_matches"`
	Extensions     []string `mapstructure:"extensions" yaml:"extensions"`
	Concurrency    int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// LLMProvider names a supported LLM backend.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the analysis model. APIKey is bound to
// CRASHLENS_LLM_API_KEY (with OPENAI_API_KEY as a fallback for the default
// provider).
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// SetDefaults initializes default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "crashlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.listen_addr", ":9000")
	v.SetDefault("server.request_timeout", "120s")

	// -- GitHub --
	v.SetDefault("github.ref", "main")
	v.SetDefault("github.timeout", "5s")
	v.SetDefault("github.requests_per_second", 5.0)

	// -- Local --
	v.SetDefault("local.base_path", ".")

	// -- Resolver --
	v.SetDefault("resolver.window_size", 10)

	// -- Search --
	v.SetDefault("search.max_matches", 50)
	v.SetDefault("search.per_file_matches", 20)
	v.SetDefault("search.extensions", []string{"php", "py", "go"})
	v.SetDefault("search.concurrency", 8)

	// -- LLM --
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.api_timeout", "90s")
}

// NewConfigFromViper builds and validates a Config from a viper instance that
// has already read its sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment only.
	_ = v.BindEnv("github.token", "CRASHLENS_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("llm.api_key", "CRASHLENS_LLM_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expanded, err := homedir.Expand(cfg.Local.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand local base path: %w", err)
	}
	cfg.Local.BasePath = expanded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// failures deep inside a request.
func (c *Config) Validate() error {
	if c.Resolver.WindowSize < 0 {
		return fmt.Errorf("resolver.window_size must be >= 0, got %d", c.Resolver.WindowSize)
	}
	if c.Search.MaxMatches <= 0 {
		return fmt.Errorf("search.max_matches must be > 0, got %d", c.Search.MaxMatches)
	}
	if c.Search.Concurrency <= 0 {
		return fmt.Errorf("search.concurrency must be > 0, got %d", c.Search.Concurrency)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported llm.provider %q (supported: %s, %s)",
			c.LLM.Provider, ProviderOpenAI, ProviderGemini)
	}
	for _, m := range c.Local.PathMaps {
		if m.From == "" {
			return fmt.Errorf("local.path_maps entries require a non-empty 'from' root")
		}
	}
	return nil
}

// BindFlags wires the common environment conventions: CRASHLENS_SECTION_KEY
// overrides section.key.
func BindFlags(v *viper.Viper) {
	v.SetEnvPrefix("CRASHLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
