package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/primemart/api/internal/platform/httpx"
	"github.com/primemart/api/internal/services"
)

// SystemHandlers exposes operational endpoints mounted under /internal.
type SystemHandlers struct {
	system services.SystemService
}

// NewSystemHandlers constructs the internal operations handler set.
func NewSystemHandlers(system services.SystemService) *SystemHandlers {
	return &SystemHandlers{system: system}
}

// Routes registers the /internal endpoints.
func (h *SystemHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.healthReport)
	r.Post("/counters/{counterName}/next", h.nextCounterValue)
}

func (h *SystemHandlers) healthReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError("system_service_unavailable", "system service unavailable", http.StatusServiceUnavailable))
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_report_failed", "failed to collect health report", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":      string(report.Status),
		"version":     report.Version,
		"commit":      report.CommitSHA,
		"environment": report.Environment,
		"uptime":      report.Uptime.String(),
		"generatedAt": formatTime(report.GeneratedAt),
	})
}

type nextCounterRequest struct {
	Step int64 `json:"step"`
}

func (h *SystemHandlers) nextCounterValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError("system_service_unavailable", "system service unavailable", http.StatusServiceUnavailable))
		return
	}

	counterName := strings.TrimSpace(chi.URLParam(r, "counterName"))
	if counterName == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "counter name is required", http.StatusBadRequest))
		return
	}

	var req nextCounterRequest
	if body, err := readLimitedBody(r, defaultBodyLimit); err == nil {
		if err := jsonUnmarshalLenient(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	value, err := h.system.NextCounterValue(ctx, services.CounterCommand{
		CounterID: counterName,
		Step:      req.Step,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCounterInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrCounterExhausted):
			httpx.WriteError(ctx, w, httpx.NewError("counter_exhausted", "counter cannot increment further", http.StatusConflict))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("counter_error", "failed to advance counter", http.StatusInternalServerError))
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"counter": counterName,
		"value":   value,
	})
}
