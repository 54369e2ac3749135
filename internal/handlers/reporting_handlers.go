package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"weather-etl/internal/models"
	"weather-etl/internal/repository"
	"weather-etl/internal/services"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	dateLayout   = "2006-01-02"
)

// ReportingHandler handles the read-only reporting endpoints
type ReportingHandler struct {
	service *services.ReportingService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewReportingHandler creates a new reporting handler
func NewReportingHandler(service *services.ReportingService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ReportingHandler {
	return &ReportingHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

type pagination struct {
	page  int
	limit int
}

func (p pagination) offset() int {
	return (p.page - 1) * p.limit
}

func (p pagination) response(data interface{}, total int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       p.page,
		Limit:      p.limit,
		TotalPages: (total + p.limit - 1) / p.limit,
	}
}

// parsePagination falls back to defaults for missing or out-of-range values
func parsePagination(r *http.Request) pagination {
	p := pagination{page: 1, limit: defaultLimit}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= maxLimit {
		p.limit = v
	}
	return p
}

type queryError struct {
	param string
	msg   string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + ", " + e.msg
}

func optionalDate(r *http.Request, param string) (*time.Time, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &queryError{param: param, msg: "expected YYYY-MM-DD"}
	}
	return &d, nil
}

func optionalInt(r *http.Request, param string) (*int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &queryError{param: param, msg: "expected integer"}
	}
	return &v, nil
}

func dateRange(r *http.Request) (start, end *time.Time, err error) {
	if start, err = optionalDate(r, "start_date"); err != nil {
		return nil, nil, err
	}
	if end, err = optionalDate(r, "end_date"); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (h *ReportingHandler) observe(endpoint string) func() {
	startTime := time.Now()
	return func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}
}

// GetForecasts handles GET /api/forecasts
func (h *ReportingHandler) GetForecasts(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/forecasts"
	defer h.observe(endpoint)()

	p := parsePagination(r)
	filter := repository.ForecastFilter{Limit: p.limit, Offset: p.offset()}

	var err error
	if filter.LocationKey, err = optionalInt(r, "location_key"); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.StartDate, filter.EndDate, err = dateRange(r); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	forecasts, total, err := h.service.GetForecasts(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, endpoint, "[API_GET_FORECASTS_ERROR] Failed to get forecasts", "failed to retrieve forecasts", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, p.response(forecasts, total), http.StatusOK)
}

// GetForecast handles GET /api/forecasts/{location_key}/{date}
func (h *ReportingHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/forecasts/{location_key}/{date}"
	defer h.observe(endpoint)()

	vars := mux.Vars(r)
	locationKey, err := strconv.Atoi(vars["location_key"])
	if err != nil {
		h.sendError(w, r, "invalid location_key, expected integer", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(dateLayout, vars["date"])
	if err != nil {
		h.sendError(w, r, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	forecast, err := h.service.GetForecast(r.Context(), locationKey, date)
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		h.sendError(w, r, notFound.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, r, endpoint, "[API_GET_FORECAST_ERROR] Failed to get forecast", "failed to retrieve forecast", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, forecast, http.StatusOK)
}

// GetPrecipitationOutlook handles GET /api/precipitation
func (h *ReportingHandler) GetPrecipitationOutlook(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/precipitation"
	defer h.observe(endpoint)()

	p := parsePagination(r)
	filter := repository.DateRangeFilter{Limit: p.limit, Offset: p.offset()}

	var err error
	if filter.StartDate, filter.EndDate, err = dateRange(r); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	rows, total, err := h.service.GetPrecipitationOutlook(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, endpoint, "[API_GET_PRECIPITATION_ERROR] Failed to get precipitation outlook", "failed to retrieve precipitation outlook", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, p.response(rows, total), http.StatusOK)
}

// GetUVCategories handles GET /api/uv
func (h *ReportingHandler) GetUVCategories(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/uv"
	defer h.observe(endpoint)()

	p := parsePagination(r)
	filter := repository.UVFilter{Limit: p.limit, Offset: p.offset()}

	var err error
	if filter.LocationKey, err = optionalInt(r, "location_key"); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.StartDate, filter.EndDate, err = dateRange(r); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	rows, total, err := h.service.GetUVCategories(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, endpoint, "[API_GET_UV_ERROR] Failed to get UV categories", "failed to retrieve uv categories", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, p.response(rows, total), http.StatusOK)
}

// GetRuns handles GET /api/runs
func (h *ReportingHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/runs"
	defer h.observe(endpoint)()

	p := parsePagination(r)
	filter := repository.RunFilter{Limit: p.limit, Offset: p.offset()}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.RunStatus(raw)
		if !status.Valid() {
			h.sendError(w, r, "invalid status, expected pending, success or failure", http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}

	runs, total, err := h.service.GetRuns(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, endpoint, "[API_GET_RUNS_ERROR] Failed to get runs", "failed to retrieve runs", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, p.response(runs, total), http.StatusOK)
}

// GetRun handles GET /api/runs/{run_id}
func (h *ReportingHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/runs/{run_id}"
	defer h.observe(endpoint)()

	run, err := h.service.GetRun(r.Context(), mux.Vars(r)["run_id"])
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		h.sendError(w, r, notFound.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(w, r, endpoint, "[API_GET_RUN_ERROR] Failed to get run", "failed to retrieve run", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, run, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ReportingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.service.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

func (h *ReportingHandler) internalError(w http.ResponseWriter, r *http.Request, endpoint, logMessage, message string, err error) {
	h.logger.Error(r.Context(), logMessage, logging.Fields{
		"query": r.URL.RawQuery,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, message, http.StatusInternalServerError)
}

// sendJSON sends a JSON response
func (h *ReportingHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ReportingHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all reporting API routes
func (h *ReportingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/forecasts", h.GetForecasts).Methods("GET")
	router.HandleFunc("/api/forecasts/{location_key:[0-9]+}/{date}", h.GetForecast).Methods("GET")
	router.HandleFunc("/api/precipitation", h.GetPrecipitationOutlook).Methods("GET")
	router.HandleFunc("/api/uv", h.GetUVCategories).Methods("GET")
	router.HandleFunc("/api/runs", h.GetRuns).Methods("GET")
	router.HandleFunc("/api/runs/{run_id}", h.GetRun).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
