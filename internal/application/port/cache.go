package port

import (
	"context"
	"errors"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// ErrCacheMiss возвращается, когда в кеше нет результата
var ErrCacheMiss = errors.New("cache miss")

// CycleCache хранит последний результат цикла для быстрых чтений API (Port).
// Реализация не должна заменять более новый результат более старым.
type CycleCache interface {
	GetLatest(ctx context.Context) (*entity.CycleResult, error)
	SetLatest(ctx context.Context, result *entity.CycleResult) error
}
