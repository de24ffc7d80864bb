package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/runner"
	"github.com/dreschagin/infra-optimizer/internal/application/usecase"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/middleware"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// LatestCycleGetter возвращает последний результат цикла
type LatestCycleGetter interface {
	Execute(ctx context.Context) (*entity.CycleResult, error)
}

// CycleLister возвращает историю циклов
type CycleLister interface {
	Execute(ctx context.Context, limit int) ([]*dto.CycleSummaryDTO, error)
}

// CycleRunner запускает цикл по запросу
type CycleRunner interface {
	RunOnce(ctx context.Context) (*entity.CycleResult, error)
	Snapshot() runner.Snapshot
}

// CycleAPIHandler обрабатывает API запросы циклов оптимизации
type CycleAPIHandler struct {
	latest LatestCycleGetter
	lister CycleLister
	runner CycleRunner
	logger *logger.Logger
}

// NewCycleAPIHandler создает новый handler
func NewCycleAPIHandler(latest LatestCycleGetter, lister CycleLister, runner CycleRunner, logger *logger.Logger) *CycleAPIHandler {
	return &CycleAPIHandler{
		latest: latest,
		lister: lister,
		runner: runner,
		logger: logger,
	}
}

// GetLatest возвращает полный документ последнего цикла
func (h *CycleAPIHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.latest.Execute(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrCycleNotFound) {
			middleware.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no optimization cycle has run yet"})
			return
		}
		h.logger.Error("Failed to get latest cycle", err)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load latest cycle"})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// List возвращает сводки последних циклов (?limit=N)
func (h *CycleAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.lister.Execute(r.Context(), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			middleware.WriteJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
			return
		}
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list cycles"})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// Run синхронно выполняет цикл и возвращает его сводку
func (h *CycleAPIHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Цикл доводится до конца, даже если клиент отключился
	result, err := h.runner.RunOnce(context.WithoutCancel(r.Context()))
	if errors.Is(err, runner.ErrCycleInProgress) {
		middleware.WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		payload := map[string]any{"error": err.Error()}
		if result != nil {
			payload["summary"] = dto.FromCycleResult(result)
		}
		middleware.WriteJSON(w, http.StatusInternalServerError, payload)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.FromCycleResult(result))
}

// Status возвращает состояние runner
func (h *CycleAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.runner.Snapshot())
}
