// Package chi serves the locusmap HTTP API.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
	healthuc "github.com/kailas-cloud/locusmap/internal/usecase/health"
	summaryuc "github.com/kailas-cloud/locusmap/internal/usecase/summary"
)

const maxBodyBytes = 8 << 20

// SummariesRequest is the body of POST /v1/summaries.
// A missing displayed_ids displays every record.
type SummariesRequest struct {
	DisplayedIDs []string `json:"displayed_ids"`
	NDisplayed   *int     `json:"n_displayed,omitempty"`
}

// TablesResponse wraps summary tables.
type TablesResponse struct {
	Tables []domsum.Table `json:"tables"`
}

// SearchHit is one search result.
type SearchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

// IndexStatusResponse is the body of GET /v1/index.
type IndexStatusResponse struct {
	State     string `json:"state"`
	Source    string `json:"source,omitempty"`
	Documents int    `json:"documents"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Limits bounds search result sizes.
type Limits struct {
	Default int
	Max     int
}

// Server implements the HTTP handlers.
type Server struct {
	summaries     Summaries
	index         SearchIndex
	health        HealthChecker
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(summaries Summaries, index SearchIndex, health HealthChecker, limits Limits, logger *zap.Logger) *Server {
	if limits.Default <= 0 {
		limits.Default = 20
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		summaries:     summaries,
		index:         index,
		health:        health,
		limits:        limits,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/summaries", s.Summaries)
		r.Get("/nodes", s.ListNodes)
		r.Get("/nodes/{node}", s.NodeSummary)
		r.Get("/search", s.Search)
		r.Get("/index", s.IndexStatus)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})
}

// Summaries handles POST /v1/summaries.
func (s *Server) Summaries(w http.ResponseWriter, r *http.Request) {
	var req SummariesRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.NDisplayed != nil && *req.NDisplayed < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "n_displayed must not be negative")
		return
	}

	tables, err := s.summaries.Summaries(r.Context(), summaryuc.Selection{
		IDs:        req.DisplayedIDs,
		NDisplayed: req.NDisplayed,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: tables})
}

// ListNodes handles GET /v1/nodes.
func (s *Server) ListNodes(w http.ResponseWriter, _ *http.Request) {
	nodes := s.summaries.Nodes()
	if nodes == nil {
		nodes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"nodes": nodes})
}

// NodeSummary handles GET /v1/nodes/{node}?n_displayed=.
func (s *Server) NodeSummary(w http.ResponseWriter, r *http.Request) {
	var sel summaryuc.Selection
	if raw := r.URL.Query().Get("n_displayed"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "n_displayed must be a non-negative integer")
			return
		}
		sel.NDisplayed = &n
	}

	tables, err := s.summaries.Node(r.Context(), chi.URLParam(r, "node"), sel)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: tables})
}

// Search handles GET /v1/search?q=&limit=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, err := s.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	hits, err := s.index.Query(r.Context(), q, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := SearchResponse{Query: q, Hits: make([]SearchHit, len(hits))}
	for i, h := range hits {
		resp.Hits[i] = SearchHit{ID: h.ID, Score: h.Score}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parseLimit(raw string) (int, error) {
	if raw == "" {
		return s.limits.Default, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return min(n, s.limits.Max), nil
}

// IndexStatus handles GET /v1/index.
func (s *Server) IndexStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.index.Status()
	resp := IndexStatusResponse{
		State:     st.State.String(),
		Source:    st.Source,
		Documents: st.Documents,
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
