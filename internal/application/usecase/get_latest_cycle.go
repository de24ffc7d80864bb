package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// GetLatestCycleUseCase возвращает последний результат цикла: кеш, история, затем основное хранилище
type GetLatestCycleUseCase struct {
	history repository.CycleRepository
	store   port.ResultStore
	cache   port.CycleCache
	logger  *logger.Logger
}

// NewGetLatestCycleUseCase создает новый use case. Все источники опциональны.
func NewGetLatestCycleUseCase(
	history repository.CycleRepository,
	store port.ResultStore,
	cache port.CycleCache,
	logger *logger.Logger,
) *GetLatestCycleUseCase {
	return &GetLatestCycleUseCase{
		history: history,
		store:   store,
		cache:   cache,
		logger:  logger,
	}
}

// Execute возвращает repository.ErrCycleNotFound, если циклов еще не было
func (uc *GetLatestCycleUseCase) Execute(ctx context.Context) (*entity.CycleResult, error) {
	if uc.cache != nil {
		cached, err := uc.cache.GetLatest(ctx)
		switch {
		case err == nil && cached != nil:
			uc.logger.Debug("Cache hit for latest cycle", "cycle_id", cached.ID)
			return cached, nil
		case err != nil && !errors.Is(err, port.ErrCacheMiss):
			uc.logger.Warn("Cache lookup failed", "error", err.Error())
		default:
			uc.logger.Debug("Cache miss for latest cycle")
		}
	}

	result, err := uc.fetch(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCycleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch latest cycle: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.SetLatest(ctx, result); err != nil {
			uc.logger.Warn("Failed to cache latest cycle", "error", err.Error())
		}
	}

	return result, nil
}

func (uc *GetLatestCycleUseCase) fetch(ctx context.Context) (*entity.CycleResult, error) {
	if uc.history != nil {
		result, err := uc.history.FindLatest(ctx)
		if err == nil || uc.store == nil {
			return result, err
		}
		uc.logger.Warn("History lookup failed, falling back to result store", "error", err.Error())
	}

	if uc.store == nil {
		return nil, repository.ErrCycleNotFound
	}

	return uc.store.Load(ctx)
}
