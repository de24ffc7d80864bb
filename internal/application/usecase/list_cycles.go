package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// ErrHistoryDisabled возвращается, когда история циклов не настроена
var ErrHistoryDisabled = errors.New("cycle history is disabled")

// ListCyclesConfig ограничивает размер выборки
type ListCyclesConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// ListCyclesUseCase возвращает сводки последних циклов
type ListCyclesUseCase struct {
	history repository.CycleRepository
	config  ListCyclesConfig
	logger  *logger.Logger
}

// NewListCyclesUseCase создает новый use case
func NewListCyclesUseCase(history repository.CycleRepository, config ListCyclesConfig, log *logger.Logger) *ListCyclesUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 20
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	if config.DefaultLimit > config.MaxLimit {
		config.DefaultLimit = config.MaxLimit
	}

	return &ListCyclesUseCase{
		history: history,
		config:  config,
		logger:  log,
	}
}

// Execute возвращает не более limit сводок, новые первыми
func (uc *ListCyclesUseCase) Execute(ctx context.Context, limit int) ([]*dto.CycleSummaryDTO, error) {
	if uc.history == nil {
		return nil, ErrHistoryDisabled
	}

	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	results, err := uc.history.List(ctx, limit)
	if err != nil {
		uc.logger.Error("Failed to list cycles", err, "limit", limit)
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}

	return dto.ToCycleSummaryDTOs(results), nil
}
