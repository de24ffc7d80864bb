package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/service"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// ApplyActionsUseCase применяет действия с высоким влиянием и откладывает остальные
type ApplyActionsUseCase struct {
	executor port.ActionExecutor
	policy   *service.ApplyPolicy
	progress port.ProgressReporter
	logger   *logger.Logger
	now      func() time.Time
}

// NewApplyActionsUseCase создает новый use case
func NewApplyActionsUseCase(
	executor port.ActionExecutor,
	policy *service.ApplyPolicy,
	progress port.ProgressReporter,
	logger *logger.Logger,
) *ApplyActionsUseCase {
	if progress == nil {
		progress = port.NopProgressReporter{}
	}
	return &ApplyActionsUseCase{
		executor: executor,
		policy:   policy,
		progress: progress,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute обходит действия по порядку. Каждое действие попадает ровно в один bucket.
func (uc *ApplyActionsUseCase) Execute(ctx context.Context, rec *entity.Recommendation) *entity.ApplyReport {
	report := entity.NewApplyReport()
	if rec == nil {
		return report
	}

	for _, action := range rec.PriorityActions {
		decision := uc.policy.Decide(action)
		if !decision.Apply {
			report.RecordSkipped(action.Action, action.Impact, decision.Reason)
			uc.logger.Debug("Action deferred", "action", action.Action, "impact", action.Impact.String())
			if !action.Impact.IsKnown() {
				uc.logger.Warn("Unrecognised impact label", "action", action.Action, "impact", action.Impact.String())
			}
			continue
		}

		uc.progress.ApplyingAction(action)

		if err := uc.executor.Execute(ctx, action); err != nil {
			uc.logger.Error("Action failed", err, "action", action.Action)
			report.RecordError(action.Action, err)
			continue
		}

		report.RecordApplied(action.Action, uc.now())
		uc.logger.Info("Action applied", "action", action.Action)
	}

	return report
}
