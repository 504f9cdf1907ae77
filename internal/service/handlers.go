// internal/service/handlers.go
package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type analyzeResponse struct {
	Success bool                    `json:"success"`
	Result  *schemas.AnalysisResult `json:"result"`
}

type contextRequest struct {
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type traceRequest struct {
	FilePath  string `json:"file_path"`
	Variable  string `json:"variable"`
	StartLine int    `json:"start_line"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "crashlens",
	})
}

// handleAnalyze runs the full pipeline. A failed LLM call is the only
// unsuccessful outcome; it still produces a structured body, never a bare 500.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var report schemas.ErrorReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(report.StackTrace) == "" && strings.TrimSpace(report.ErrorMessage) == "" {
		writeError(w, http.StatusBadRequest, "error_message or stack_trace is required")
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), report)
	if err != nil {
		var backendErr *schemas.AnalysisBackendError
		if errors.As(err, &backendErr) {
			writeError(w, http.StatusBadGateway, "analysis backend failed: "+backendErr.Cause.Error())
			return
		}
		s.logger.Error("Analyze failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Result: result})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.FilePath == "" || req.LineNumber <= 0 {
		writeError(w, http.StatusBadRequest, "file_path and a positive line_number are required")
		return
	}

	cc, err := s.analyzer.Resolve(r.Context(), schemas.StackFrame{
		FilePath:   req.FilePath,
		LineNumber: req.LineNumber,
	})
	if err != nil {
		var unresolved *schemas.ContextUnresolvedError
		if errors.As(err, &unresolved) {
			writeError(w, http.StatusNotFound, unresolved.Error())
			return
		}
		s.logger.Error("Context resolution failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := s.analyzer.Search(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("Search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if matches == nil {
		matches = []schemas.SearchMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var req traceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.FilePath == "" || strings.TrimSpace(req.Variable) == "" {
		writeError(w, http.StatusBadRequest, "file_path and variable are required")
		return
	}

	events, err := s.analyzer.Trace(r.Context(), req.FilePath, req.Variable, req.StartLine)
	if err != nil {
		if errors.Is(err, schemas.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("Trace failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []schemas.VariableEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Success: false, Error: message})
}
