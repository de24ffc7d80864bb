package executor

import (
	"context"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// SimulatedExecutor имитирует применение действия задержкой.
// Реальные изменения инфраструктуры не выполняются.
// Реализует интерфейс port.ActionExecutor
type SimulatedExecutor struct {
	delay  time.Duration
	logger *logger.Logger
}

// NewSimulatedExecutor создает executor с заданной задержкой
func NewSimulatedExecutor(delay time.Duration, logger *logger.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{delay: delay, logger: logger}
}

// Execute ждет задержку или отмену контекста
func (e *SimulatedExecutor) Execute(ctx context.Context, action entity.PriorityAction) error {
	e.logger.Debug("Simulating action", "action", action.Action, "delay", e.delay)

	if e.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
