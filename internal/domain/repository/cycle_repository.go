package repository

import (
	"context"
	"errors"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// ErrCycleNotFound возвращается, когда в истории нет ни одного цикла
var ErrCycleNotFound = errors.New("cycle not found")

// CycleRepository определяет интерфейс истории циклов оптимизации (Port)
// Реализация будет в Infrastructure слое
type CycleRepository interface {
	// Save сохраняет результат цикла
	Save(ctx context.Context, result *entity.CycleResult) error

	// FindLatest находит последний завершенный цикл
	FindLatest(ctx context.Context) (*entity.CycleResult, error)

	// List возвращает последние циклы, новые первыми
	List(ctx context.Context, limit int) ([]*entity.CycleResult, error)
}
