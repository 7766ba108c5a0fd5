package handler

import (
	"net/http"
	"strconv"

	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/pkg/response"
)

const defaultPopularLimit = 10

type ReportHandler struct {
	reports *service.ReportService
	now     Clock
}

func NewReportHandler(reports *service.ReportService, clock Clock) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		now:     orSystemClock(clock),
	}
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Dashboard(r.Context(), h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, stats)
}

func (h *ReportHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Revenue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, report)
}

// Popular handles GET /reports/popular?limit=N
func (h *ReportHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := defaultPopularLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	popular, err := h.reports.PopularMovies(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, popular)
}

func (h *ReportHandler) LateReturns(w http.ResponseWriter, r *http.Request) {
	late, err := h.reports.LateReturns(r.Context(), h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, late)
}
