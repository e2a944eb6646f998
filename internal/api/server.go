// Package api exposes the HTTP control surface: starting index and review
// runs, polling their progress, asking questions against the index and
// fetching finished reports.
package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"

	"vigil/internal/config"
	"vigil/internal/plugins"
	"vigil/internal/workflows"
)

type Server struct {
	cfg      config.Config
	registry *plugins.Registry
	temporal tclient.Client
	log      zerolog.Logger
}

func NewServer(cfg config.Config, registry *plugins.Registry, tc tclient.Client, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, registry: registry, temporal: tc, log: log}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/languages", s.handleLanguages)
	mux.HandleFunc("/index", s.handleIndex)
	mux.HandleFunc("/index/", s.handleIndexScoped)
	mux.HandleFunc("/reviews", s.handleReviews)
	mux.HandleFunc("/reviews/", s.handleReviewsScoped)
	mux.HandleFunc("/ask", s.handleAsk)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"languages":  s.registry.Languages(),
		"extensions": s.registry.CodeExtensions(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Root  string `json:"root"`
		Force bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	root := req.Root
	if root == "" {
		root = s.cfg.CodebasePath
	}
	wfID := "index-" + uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    wfID,
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.IndexCodebaseWorkflow, workflows.IndexCodebaseInput{
		Root:          root,
		MaxConcurrent: s.cfg.MaxWorkers,
		Force:         req.Force,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("start index workflow")
		writeError(w, http.StatusBadGateway, "could not start index workflow")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleIndexScoped(w http.ResponseWriter, r *http.Request) {
	wfID, action := splitScoped(r.URL.Path, "/index/")
	if wfID == "" || action != "progress" || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), wfID, "", workflows.QueryGetIndexProgress)
	if err != nil {
		writeError(w, http.StatusNotFound, "workflow not found or not queryable")
		return
	}
	var prog workflows.IndexProgress
	if err := resp.Get(&prog); err != nil {
		writeError(w, http.StatusInternalServerError, "decode progress")
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Mode           string   `json:"mode"`
		Root           string   `json:"root"`
		PatchText      string   `json:"patch_text"`
		Include        []string `json:"include"`
		Exclude        []string `json:"exclude"`
		SkipExplain    bool     `json:"skip_explain"`
		AttemptFix     bool     `json:"attempt_fix"`
		CustomGuidance string   `json:"custom_guidance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = "files"
	}
	if mode == "changes" && strings.TrimSpace(req.PatchText) == "" {
		writeError(w, http.StatusBadRequest, "mode changes requires patch_text")
		return
	}
	root := req.Root
	if root == "" {
		root = s.cfg.CodebasePath
	}
	include := req.Include
	if include == nil {
		include = s.cfg.ReviewInclude
	}
	exclude := req.Exclude
	if exclude == nil {
		exclude = s.cfg.ReviewExclude
	}
	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "review-" + runID,
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.ReviewRunWorkflow, workflows.ReviewRunInput{
		RunID:          runID,
		Mode:           mode,
		Root:           root,
		PatchText:      req.PatchText,
		Include:        include,
		Exclude:        exclude,
		MaxConcurrent:  s.cfg.MaxWorkers,
		SkipExplain:    req.SkipExplain || s.cfg.SkipExplain,
		Validate:       s.cfg.ValidateFindings,
		AttemptFix:     req.AttemptFix || s.cfg.AttemptFix,
		CustomGuidance: req.CustomGuidance,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("start review workflow")
		writeError(w, http.StatusBadGateway, "could not start review workflow")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"review_run_id": runID,
		"workflow_id":   we.GetID(),
		"run_id":        we.GetRunID(),
	})
}

func (s *Server) handleReviewsScoped(w http.ResponseWriter, r *http.Request) {
	runID, action := splitScoped(r.URL.Path, "/reviews/")
	if runID == "" || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch action {
	case "progress":
		resp, err := s.temporal.QueryWorkflow(r.Context(), "review-"+runID, "", workflows.QueryGetRunProgress)
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found or not queryable")
			return
		}
		var prog workflows.ReviewRunProgress
		if err := resp.Get(&prog); err != nil {
			writeError(w, http.StatusInternalServerError, "decode progress")
			return
		}
		writeJSON(w, http.StatusOK, prog)
	case "report":
		path := filepath.Join(s.cfg.DataOutRoot, "runs", runID, "results.json")
		b, err := os.ReadFile(path)
		if err != nil {
			writeError(w, http.StatusNotFound, "report not available yet")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "ask-" + uuid.NewString(),
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.AskWorkflow, workflows.AskInput{
		Root:     s.cfg.CodebasePath,
		Question: req.Question,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("start ask workflow")
		writeError(w, http.StatusBadGateway, "could not start ask workflow")
		return
	}
	var out workflows.AskOutput
	if err := we.Get(r.Context(), &out); err != nil {
		writeError(w, http.StatusBadGateway, "ask failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func splitScoped(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
