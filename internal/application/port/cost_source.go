package port

import (
	"context"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// CostSource определяет интерфейс источника стоимости инфраструктуры (Port)
type CostSource interface {
	// GetCostSnapshot возвращает текущий снимок стоимости
	GetCostSnapshot(ctx context.Context) (entity.CostSnapshot, error)

	// Name возвращает имя источника ("static", "cost-explorer")
	Name() string
}
