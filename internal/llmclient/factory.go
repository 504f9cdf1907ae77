// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/config"
)

// NewClient builds the LLM client named by the configuration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider %q (supported: %s, %s)",
			cfg.Provider, config.ProviderOpenAI, config.ProviderGemini)
	}
}
