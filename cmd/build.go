// cmd/build.go
package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/internal/backend"
	"github.com/xkilldash9x/crashlens/internal/config"
	"github.com/xkilldash9x/crashlens/internal/llmclient"
	"github.com/xkilldash9x/crashlens/internal/orchestrator"
	"github.com/xkilldash9x/crashlens/internal/resolver"
	"github.com/xkilldash9x/crashlens/internal/search"
	"github.com/xkilldash9x/crashlens/internal/stacktrace"
	"github.com/xkilldash9x/crashlens/internal/vartrace"
)

// buildOrchestrator wires the full analysis pipeline from configuration: the
// local backend (always), the GitHub backend (when owner/repo are set), the
// resolver over both, the search engine, the tracer and the LLM client.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	local := backend.NewLocal(cfg.Local.BasePath, backend.MappingsFromConfig(cfg.Local.PathMaps), logger)

	var remote resolver.RemoteBackend
	if cfg.GitHub.Enabled() {
		remote = backend.NewGitHub(cfg.GitHub, logger)
	}

	llm, err := llmclient.NewClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build LLM client: %w", err)
	}

	return orchestrator.New(
		stacktrace.NewParser(),
		resolver.New(remote, local, cfg.Resolver.WindowSize, logger),
		search.NewEngine(cfg.Search, logger),
		vartrace.NewTracer(logger),
		local,
		llm,
		cfg.LLM,
		logger,
	), nil
}
