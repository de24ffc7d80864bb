package port

import (
	"context"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
)

// CycleEventPublisher отправляет события завершения цикла во внешний брокер (Port).
// Subject выбирает реализация по типу события.
type CycleEventPublisher interface {
	PublishCycleEvent(ctx context.Context, event *dto.CycleEventDTO) error
}
