package port

import (
	"context"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// ResultStore определяет основное хранилище результата цикла (Port).
// Каждый Save перезаписывает предыдущий результат.
type ResultStore interface {
	// Save сохраняет результат и возвращает его расположение
	Save(ctx context.Context, result *entity.CycleResult) (string, error)

	// Load читает последний сохраненный результат
	Load(ctx context.Context) (*entity.CycleResult, error)
}
