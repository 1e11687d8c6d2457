package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/pipeline"
	"github.com/mohamedkhairy/stock-isolator/internal/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportSource provides the latest report
type ReportSource interface {
	Latest() *report.Report
	Status() pipeline.Status
}

// ReportHandler handles report endpoints
type ReportHandler struct {
	source ReportSource
}

// NewReportHandler creates a new report handler
func NewReportHandler(source ReportSource) *ReportHandler {
	return &ReportHandler{source: source}
}

func (h *ReportHandler) latest(w http.ResponseWriter) (*report.Report, bool) {
	rep := h.source.Latest()
	if rep == nil {
		respondWithError(w, http.StatusServiceUnavailable, "No report available yet")
		return nil, false
	}
	return rep, true
}

// GetReport handles GET /api/v1/report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}

// GetCandidates handles GET /api/v1/report/candidates
func (h *ReportHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     rep.RunID,
		"candidates": rep.Candidates,
		"count":      len(rep.Candidates),
	})
}

// GetDay handles GET /api/v1/report/days/{date}
func (h *ReportHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	rep, ok := h.latest(w)
	if !ok {
		return
	}
	row, found := rep.Day(date)
	if !found {
		respondWithError(w, http.StatusNotFound, "Date not in report")
		return
	}
	respondWithJSON(w, http.StatusOK, row)
}

// GetStatus handles GET /api/v1/report/status
func (h *ReportHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.source.Status())
}

// Health handles GET /health
func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"has_report": h.source.Latest() != nil,
	})
}

// NewRouter wires the report endpoints, health and metrics
func NewRouter(source ReportSource, requestsPerSecond int) *mux.Router {
	h := NewReportHandler(source)

	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/report", h.GetReport).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/report/candidates", h.GetCandidates).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/report/status", h.GetStatus).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/report/days/{date}", h.GetDay).Methods(http.MethodGet, http.MethodOptions)

	middlewares := []Middleware{ErrorHandlingMiddleware(), LoggingMiddleware(), CORSMiddleware()}
	if requestsPerSecond > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(requestsPerSecond))
	}
	chain := ChainMiddleware(middlewares...)
	router.Use(func(next http.Handler) http.Handler { return chain(next) })

	return router
}
