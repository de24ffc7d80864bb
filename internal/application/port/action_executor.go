package port

import (
	"context"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// ActionExecutor определяет интерфейс применения действия (Port)
type ActionExecutor interface {
	// Execute применяет действие. Ошибка попадает в bucket errors отчета.
	Execute(ctx context.Context, action entity.PriorityAction) error
}
