package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/ingest"
	"github.com/wonny/alphapulse/internal/metrics"
	"github.com/wonny/alphapulse/internal/risk"
	"github.com/wonny/alphapulse/pkg/logger"
)

// AnalysisHandler handles upload and report endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만
type AnalysisHandler struct {
	service        *analysis.Service
	fetcher        *ingest.Fetcher
	defaultCapital float64
	maxBytes       int64
	logger         *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler.
// defaultCapital is used for CSV uploads that do not name one.
func NewAnalysisHandler(
	service *analysis.Service,
	fetcher *ingest.Fetcher,
	defaultCapital float64,
	maxBytes int64,
	log *logger.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		service:        service,
		fetcher:        fetcher,
		defaultCapital: defaultCapital,
		maxBytes:       maxBytes,
		logger:         log,
	}
}

// Analyze computes metrics for an uploaded dataset
// POST /api/analyze?capital=&format=
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	capital, ok := parseCapital(w, r)
	if !ok {
		return
	}

	format, err := ingest.DetectFormat(r.URL.Query().Get("format"), r.Header.Get("Content-Type"), "")
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to detect format")
		return
	}
	if format == ingest.FormatCSV && capital == 0 {
		capital = h.defaultCapital
	}

	body, err := ingest.ReadLimited(r.Body, h.maxBytes)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}

	ds, err := ingest.Decode(format, bytes.NewReader(body), capital)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to decode upload")
		return
	}

	report, err := h.service.Analyze(r.Context(), ds)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to analyze dataset")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

type remoteRequest struct {
	URL     string  `json:"url"`
	Capital float64 `json:"capital"`
}

// AnalyzeRemote downloads a dataset and computes its metrics
// POST /api/analyze/remote
func (h *AnalysisHandler) AnalyzeRemote(w http.ResponseWriter, r *http.Request) {
	var req remoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Capital < 0 {
		respondError(w, http.StatusBadRequest, "capital must be positive")
		return
	}

	ds, err := h.fetcher.Fetch(r.Context(), req.URL, req.Capital)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to fetch dataset")
		return
	}

	report, err := h.service.Analyze(r.Context(), ds)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to analyze dataset")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// ListReports returns stored report summaries
// GET /api/reports?limit=
func (h *AnalysisHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := h.service.Reports(r.Context(), limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetReport returns one report with its full metrics
// GET /api/reports/{id}
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get report")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// FilterReport returns the report metrics narrowed to a date window
// GET /api/reports/{id}/filter?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *AnalysisHandler) FilterReport(w http.ResponseWriter, r *http.Request) {
	var window metrics.DateRange
	for _, b := range []struct {
		name string
		dst  **time.Time
	}{{"start", &window.Start}, {"end", &window.End}} {
		v := r.URL.Query().Get(b.name)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid "+b.name+" date (expected YYYY-MM-DD)")
			return
		}
		*b.dst = &t
	}

	report, err := h.service.Report(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get report")
		return
	}

	respondJSON(w, http.StatusOK, metrics.FilterByDateRange(report.Metrics, window))
}

// Drawdowns returns the drawdown waterfall of a report
// GET /api/reports/{id}/drawdowns?limit=
func (h *AnalysisHandler) Drawdowns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	periods, err := h.service.Drawdowns(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to compute drawdowns")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"periods": periods,
		"count":   len(periods),
	})
}

// Projection runs the equity projection of a report
// GET /api/reports/{id}/projection?simulations=&seed=
func (h *AnalysisHandler) Projection(w http.ResponseWriter, r *http.Request) {
	var override risk.ProjectionConfig

	if v := r.URL.Query().Get("simulations"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10000 {
			respondError(w, http.StatusBadRequest, "simulations must be between 1 and 10000")
			return
		}
		override.Simulations = n
	}
	if v := r.URL.Query().Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid seed")
			return
		}
		override.Seed = seed
	}

	proj, err := h.service.Project(r.Context(), mux.Vars(r)["id"], override)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to run projection")
		return
	}

	respondJSON(w, http.StatusOK, proj)
}

// parseCapital reads the optional capital override. Zero means not given.
func parseCapital(w http.ResponseWriter, r *http.Request) (float64, bool) {
	v := r.URL.Query().Get("capital")
	if v == "" {
		return 0, true
	}
	capital, err := strconv.ParseFloat(v, 64)
	if err != nil || !(capital > 0) {
		respondError(w, http.StatusBadRequest, "capital must be a positive number")
		return 0, false
	}
	return capital, true
}
