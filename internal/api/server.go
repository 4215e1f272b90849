package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"

	"github.com/sschoedel/paper-search/internal/config"
	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/storage"
	"github.com/sschoedel/paper-search/internal/workflows"
)

// paperReader is the read-only repository surface the handlers need.
type paperReader interface {
	GetPaper(ctx context.Context, id int64) (models.Paper, error)
	SearchPapers(ctx context.Context, query string, filters storage.SearchFilters, limit int) ([]models.SearchResult, error)
	ListRecentPapers(ctx context.Context, days int, source string, limit int) ([]models.Paper, error)
	FindRelatedPapers(ctx context.Context, paperID int64, limit int) ([]models.SearchResult, error)
	GetDailySummary(ctx context.Context, date time.Time) (models.DailySummary, error)
}

type runReader interface {
	GetRun(ctx context.Context, id int64) (models.CollectionRun, error)
}

type Server struct {
	cfg      config.Config
	papers   paperReader
	runs     runReader
	temporal tclient.Client
}

func NewServer(cfg config.Config, db *storage.DB, tc tclient.Client) *Server {
	return &Server{
		cfg:      cfg,
		papers:   storage.NewPaperRepo(db),
		runs:     storage.NewRunRepo(db),
		temporal: tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/papers/", s.handlePapersScoped)
	mux.HandleFunc("/recent", s.handleRecent)
	mux.HandleFunc("/summary/daily", s.handleDailySummary)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunsScoped)
	return withRequestLog(withCORS(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("query parameter q is required"))
		return
	}
	filters := storage.SearchFilters{Source: r.URL.Query().Get("source")}
	if from, ok := parseDateParam(r, "from"); ok {
		filters.DateFrom = &from
	}
	if to, ok := parseDateParam(r, "to"); ok {
		filters.DateTo = &to
	}
	results, err := s.papers.SearchPapers(r.Context(), query, filters, limitParam(r, 20))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results, "count": len(results)})
}

func (s *Server) handlePapersScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/papers/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid paper id %q", parts[0]))
		return
	}

	switch {
	case len(parts) == 1:
		paper, err := s.papers.GetPaper(r.Context(), id)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, paper)
	case len(parts) == 2 && parts[1] == "related":
		related, err := s.papers.FindRelatedPapers(r.Context(), id, limitParam(r, 5))
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"paper_id": id, "related": related})
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid days parameter"))
			return
		}
		days = n
	}
	papers, err := s.papers.ListRecentPapers(r.Context(), days, r.URL.Query().Get("source"), limitParam(r, 50))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "papers": papers, "count": len(papers)})
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	date := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	summary, err := s.papers.GetDailySummary(r.Context(), date)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		DryRun bool `json:"dry_run"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}

	workflowID := "collect-" + uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: s.cfg.TemporalTaskQueue,
	}, workflows.DailyCollectionWorkflow, workflows.DailyCollectionInput{DryRun: req.DryRun})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"workflow_id": we.GetID(),
		"run_id":      we.GetRunID(),
		"dry_run":     req.DryRun,
	})
}

// handleRunsScoped serves both persisted run records (numeric ids) and live
// workflow executions (workflow ids from POST /runs).
func (s *Server) handleRunsScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	if id == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	if numeric, err := strconv.ParseInt(id, 10, 64); err == nil {
		run, err := s.runs.GetRun(r.Context(), numeric)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	desc, err := s.temporal.DescribeWorkflowExecution(r.Context(), id, "")
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	status := desc.GetWorkflowExecutionInfo().GetStatus()
	out := map[string]any{
		"workflow_id": id,
		"status":      strings.ToLower(status.String()),
		"running":     status == enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING,
	}
	if resp, err := s.temporal.QueryWorkflow(r.Context(), id, "", workflows.QueryGetProgress); err == nil {
		var prog workflows.DailyCollectionProgress
		if err := resp.Get(&prog); err == nil {
			out["progress"] = prog
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseDateParam(r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func limitParam(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	msg := "request failed"
	if err != nil && code < 500 {
		msg = err.Error()
	}
	if code >= 500 {
		log.Error().Err(err).Int("status", code).Msg("request failed")
		msg = "internal server error"
	}
	writeJSON(w, code, map[string]any{"error": map[string]any{"message": msg}})
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
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
