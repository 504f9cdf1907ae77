// internal/orchestrator/orchestrator.go

// Package orchestrator drives one analysis request end to end: parse the stack
// trace, gather code context through the resolver, enrich with search and
// variable-flow results, hand the assembled bundle to the LLM and parse the
// response. Every context-gathering step degrades instead of aborting; only a
// failed LLM call fails the request.
package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/backend"
	"github.com/xkilldash9x/crashlens/internal/config"
	"github.com/xkilldash9x/crashlens/internal/stacktrace"
)

// ContextResolver yields a code window for a stack frame.
type ContextResolver interface {
	Resolve(ctx context.Context, frame schemas.StackFrame) (*schemas.CodeContext, error)
}

// Searcher scans a backend's file tree for a query string.
type Searcher interface {
	Search(ctx context.Context, b schemas.SourceBackend, root, query string) ([]schemas.SearchMatch, error)
}

// FlowTracer builds a variable's event history within one file.
type FlowTracer interface {
	Trace(ctx context.Context, b schemas.SourceBackend, filePath, variable string, startLine int) ([]schemas.VariableEvent, error)
}

var undefinedVarRegexes = []*regexp.Regexp{
	// PHP: "Undefined variable: post" / "Undefined variable $post"
	regexp.MustCompile(`Undefined variable:?\s+\$?(\w+)`),
	// Python: "name 'post' is not defined"
	regexp.MustCompile(`name '(\w+)' is not defined`),
}

// Orchestrator composes the context subsystem and the LLM client.
type Orchestrator struct {
	parser   *stacktrace.Parser
	resolver ContextResolver
	searcher Searcher
	tracer   FlowTracer
	// searchBackend is the tree that search and variable tracing run against;
	// in practice the local filesystem adapter.
	searchBackend schemas.SourceBackend
	llm           schemas.LLMClient
	llmCfg        config.LLMConfig
	logger        *zap.Logger
}

// New creates an orchestrator. searcher, tracer and searchBackend may be nil,
// in which case the corresponding enrichment steps are skipped.
func New(
	parser *stacktrace.Parser,
	res ContextResolver,
	searcher Searcher,
	tracer FlowTracer,
	searchBackend schemas.SourceBackend,
	llm schemas.LLMClient,
	llmCfg config.LLMConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		parser:        parser,
		resolver:      res,
		searcher:      searcher,
		tracer:        tracer,
		searchBackend: searchBackend,
		llm:           llm,
		llmCfg:        llmCfg,
		logger:        logger.Named("orchestrator"),
	}
}

// Analyze runs the full pipeline for one error report. The only failure mode
// is a *schemas.AnalysisBackendError from the LLM call itself; everything
// upstream degrades and is recorded in the result's Degradations.
func (o *Orchestrator) Analyze(ctx context.Context, report schemas.ErrorReport) (*schemas.AnalysisResult, error) {
	requestID := uuid.NewString()
	logger := o.logger.With(zap.String("request_id", requestID))
	logger.Info("Analysis starting",
		zap.String("error_type", report.ErrorType),
		zap.Int("trace_bytes", len(report.StackTrace)))

	var degradations []string

	frames, err := o.parser.Parse(report.StackTrace)
	if err != nil {
		logger.Warn("Stack trace unparseable, proceeding without frames", zap.Error(err))
		degradations = append(degradations, fmt.Sprintf("stack trace could not be parsed: %v", err))
	}
	insights := o.parser.ExtractInsights(report.StackTrace)

	if report.ServerBasePath != "" {
		frames = retranslateFrames(frames, report.ServerBasePath)
	}

	var cc *schemas.CodeContext
	frame, ok := innermostResolvable(frames)
	if ok {
		cc, err = o.resolver.Resolve(ctx, frame)
		if err != nil {
			logger.Warn("Code context unresolved",
				zap.String("file", frame.FilePath),
				zap.Int("line", frame.LineNumber),
				zap.Error(err))
			degradations = append(degradations,
				fmt.Sprintf("code context unavailable for %s:%d", frame.FilePath, frame.LineNumber))
		}
	} else if len(frames) > 0 {
		degradations = append(degradations, "no stack frame carries a resolvable file path")
	}

	var matches []schemas.SearchMatch
	if o.searcher != nil && o.searchBackend != nil && strings.TrimSpace(report.ErrorMessage) != "" {
		matches, err = o.searcher.Search(ctx, o.searchBackend, "", searchQuery(report.ErrorMessage))
		if err != nil {
			logger.Warn("Code search failed", zap.Error(err))
			degradations = append(degradations, fmt.Sprintf("code search failed: %v", err))
			matches = nil
		}
	}

	var flow []schemas.VariableEvent
	if variable := undefinedVariable(report.ErrorMessage); variable != "" && o.tracer != nil && o.searchBackend != nil && ok {
		flow, err = o.tracer.Trace(ctx, o.searchBackend, frame.FilePath, variable, frame.LineNumber)
		if err != nil {
			logger.Warn("Variable trace failed", zap.String("variable", variable), zap.Error(err))
			degradations = append(degradations, fmt.Sprintf("variable trace failed for %q: %v", variable, err))
			flow = nil
		}
	}

	bundle := buildBundle(report, frames, insights, cc, matches, flow, degradations)

	analysis, err := o.llm.Complete(ctx, schemas.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   bundle,
		Temperature:  o.llmCfg.Temperature,
		MaxTokens:    o.llmCfg.MaxTokens,
	})
	if err != nil {
		logger.Error("LLM analysis failed", zap.Error(err))
		return nil, &schemas.AnalysisBackendError{Cause: err}
	}

	result := &schemas.AnalysisResult{
		RequestID:     requestID,
		Analysis:      analysis,
		Suggestions:   parseSuggestions(analysis),
		FileLocations: frames,
		Degradations:  degradations,
	}
	logger.Info("Analysis complete",
		zap.Int("frames", len(frames)),
		zap.Int("suggestions", len(result.Suggestions)),
		zap.Int("degradations", len(degradations)))
	return result, nil
}

// Resolve exposes the context resolver as a standalone operation.
func (o *Orchestrator) Resolve(ctx context.Context, frame schemas.StackFrame) (*schemas.CodeContext, error) {
	return o.resolver.Resolve(ctx, frame)
}

// Search exposes the pattern search engine as a standalone operation.
func (o *Orchestrator) Search(ctx context.Context, query string) ([]schemas.SearchMatch, error) {
	if o.searcher == nil || o.searchBackend == nil {
		return nil, fmt.Errorf("search is not configured")
	}
	return o.searcher.Search(ctx, o.searchBackend, "", query)
}

// Trace exposes the variable flow tracer as a standalone operation.
func (o *Orchestrator) Trace(ctx context.Context, filePath, variable string, startLine int) ([]schemas.VariableEvent, error) {
	if o.tracer == nil || o.searchBackend == nil {
		return nil, fmt.Errorf("variable tracing is not configured")
	}
	return o.tracer.Trace(ctx, o.searchBackend, filePath, variable, startLine)
}

// innermostResolvable returns the first frame carrying a file path; frames are
// already ordered innermost-first by the parser.
func innermostResolvable(frames []schemas.StackFrame) (schemas.StackFrame, bool) {
	for _, f := range frames {
		if f.FilePath != "" && f.LineNumber > 0 {
			return f, true
		}
	}
	return schemas.StackFrame{}, false
}

// retranslateFrames strips a per-report base path override so that frame paths
// become relative to whatever root the backends serve.
func retranslateFrames(frames []schemas.StackFrame, basePath string) []schemas.StackFrame {
	maps := []backend.PathMap{{From: basePath, To: ""}}
	out := make([]schemas.StackFrame, len(frames))
	for i, f := range frames {
		f.FilePath = strings.TrimPrefix(backend.Translate(f.FilePath, maps), "/")
		out[i] = f
	}
	return out
}

// undefinedVariable extracts the variable named by an undefined-variable error
// message, or "" when the message is something else.
func undefinedVariable(message string) string {
	for _, re := range undefinedVarRegexes {
		if m := re.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	return ""
}

// searchQuery trims the error message down to a searchable core: the text
// after the last colon tends to carry the identifiers worth grepping for.
func searchQuery(message string) string {
	message = strings.TrimSpace(message)
	if idx := strings.LastIndex(message, ":"); idx >= 0 && idx+1 < len(message) {
		if tail := strings.TrimSpace(message[idx+1:]); len(tail) >= 4 {
			return tail
		}
	}
	return message
}
