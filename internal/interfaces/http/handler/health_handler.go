package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/middleware"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// ReadinessCheck проверяет одну зависимость (БД, Redis)
type ReadinessCheck func(ctx context.Context) error

// HealthHandler обслуживает liveness и readiness probes
type HealthHandler struct {
	checks  map[string]ReadinessCheck
	timeout time.Duration
	logger  *logger.Logger
}

// NewHealthHandler создает новый handler
func NewHealthHandler(checks map[string]ReadinessCheck, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Live всегда отвечает ok, пока процесс жив
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready проверяет все зависимости
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", "check", name, "error", err.Error())
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"failed": failed,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
