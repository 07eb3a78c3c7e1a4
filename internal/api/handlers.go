package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/ingest"
	"github.com/raaihank/literal-sentinel/internal/privacy"
	"github.com/raaihank/literal-sentinel/internal/report"
	"github.com/raaihank/literal-sentinel/internal/store"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// ScanRequest is the body of POST /api/v1/scan
type ScanRequest struct {
	Documents []engine.Document `json:"documents"`
}

// RewriteRequest is the body of POST /api/v1/rewrite
type RewriteRequest struct {
	Document engine.Document `json:"document"`
}

// ScanResponse is the report of a scan together with publishing problems
type ScanResponse struct {
	report.Document
	Warnings []string `json:"warnings,omitempty"`
}

// CatalogInfo describes the catalog currently in use
type CatalogInfo struct {
	Fingerprint string              `json:"fingerprint"`
	RuleCount   int                 `json:"rule_count"`
	Categories  []CategoryInfo      `json:"categories"`
	Diagnostics []engine.Diagnostic `json:"diagnostics,omitempty"`
}

// CategoryInfo describes one compiled category
type CategoryInfo struct {
	Name       string   `json:"name"`
	BaseWeight float64  `json:"base_weight"`
	Rules      []string `json:"rules"`
}

// RunDetail is a persisted run with its candidates
type RunDetail struct {
	Run        *store.Run         `json:"run"`
	Candidates []engine.Candidate `json:"candidates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	eng := s.Engine()
	hubStats := s.wsHub.GetStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":                "literal-sentinel",
		"version":             Version,
		"uptime_seconds":      int(time.Since(s.started).Seconds()),
		"catalog_fingerprint": eng.Fingerprint(),
		"categories":          len(eng.Catalog().Categories()),
		"rules":               eng.Catalog().RuleCount(),
		"store_enabled":       s.store != nil,
		"websocket_clients":   hubStats.ActiveConnections,
	})
}

// decodeBody reads a size-limited JSON body, writing the error response on failure
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func normalizeDocument(doc engine.Document, index int) engine.Document {
	if doc.Path == "" {
		doc.Path = fmt.Sprintf("document-%d", index+1)
	}
	if doc.FileCategory == "" {
		doc.FileCategory = ingest.FileCategoryFor(doc.Path)
	}
	return doc
}

// handleScan analyses the posted documents as one run
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithRequestID(getRequestID(r.Context()))

	var req ScanRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "scan request has no documents")
		return
	}

	docs := make([]engine.Document, len(req.Documents))
	for i, doc := range req.Documents {
		docs[i] = normalizeDocument(doc, i)
	}

	eng := s.Engine()
	runID := store.NewRunID()
	result, err := eng.Run(r.Context(), docs)
	if err != nil {
		log.Warn("Scan failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if s.redactor != nil {
		result = s.redactor.RedactResult(result).Result
	}

	resp := ScanResponse{
		Document: report.Document{
			RunID:       runID,
			GeneratedAt: time.Now().UTC(),
			Summary:     report.Summarize(result),
			Result:      result,
		},
	}
	if err := s.publish(r.Context(), runID, eng, result); err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRewrite returns one document with its literals replaced by placeholders
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	doc := normalizeDocument(req.Document, 0)
	candidates := s.Engine().ScanDocument(doc)
	writeJSON(w, http.StatusOK, privacy.Rewrite(doc, candidates))
}

// handleCatalog describes the catalog in use
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, describeCatalog(s.Engine()))
}

// handleCatalogReload reloads the configured catalog file
func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	eng, err := s.ReloadCatalog(s.config.Scan.CatalogFile)
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Catalog reload failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, describeCatalog(eng))
}

func describeCatalog(eng *engine.Engine) CatalogInfo {
	cat := eng.Catalog()
	info := CatalogInfo{
		Fingerprint: eng.Fingerprint(),
		RuleCount:   cat.RuleCount(),
		Diagnostics: eng.Diagnostics(),
	}
	for _, c := range cat.Categories() {
		rules := make([]string, len(c.Rules))
		for i, rule := range c.Rules {
			rules[i] = rule.Source
		}
		info.Categories = append(info.Categories, CategoryInfo{
			Name:       c.Name,
			BaseWeight: c.BaseWeight,
			Rules:      rules,
		})
	}
	return info
}

// handleListRuns lists the most recent runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "result store is not configured")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run with its candidates
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "result store is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to load run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	candidates, err := s.store.Candidates(r.Context(), id)
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to load candidates", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, RunDetail{Run: run, Candidates: candidates})
}
