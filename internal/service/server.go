// internal/service/server.go

// Package service is the HTTP surface: JSON framing over the analysis
// operations, health reporting and graceful shutdown. All domain behavior
// lives below it in the orchestrator.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/config"
)

// Analyzer is the operation surface the HTTP layer exposes.
type Analyzer interface {
	Analyze(ctx context.Context, report schemas.ErrorReport) (*schemas.AnalysisResult, error)
	Resolve(ctx context.Context, frame schemas.StackFrame) (*schemas.CodeContext, error)
	Search(ctx context.Context, query string) ([]schemas.SearchMatch, error)
	Trace(ctx context.Context, filePath, variable string, startLine int) ([]schemas.VariableEvent, error)
}

// Server wraps the chi router and its http.Server.
type Server struct {
	cfg      config.ServerConfig
	analyzer Analyzer
	logger   *zap.Logger
	httpSrv  *http.Server
}

// NewServer builds the server and its routes.
func NewServer(cfg config.ServerConfig, analyzer Analyzer, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		logger:   logger.Named("service"),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/context", s.handleContext)
		r.Post("/search", s.handleSearch)
		r.Post("/trace", s.handleTrace)
	})
	return r
}

// requestLogger logs one line per request with the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("Request handled",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.ListenAddr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
