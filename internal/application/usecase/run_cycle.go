package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// RunCycleConfig содержит параметры цикла
type RunCycleConfig struct {
	WindowDuration time.Duration
	ArchivePrefix  string
}

// RunCycleDeps - зависимости оркестратора. Все sinks после Store опциональны.
type RunCycleDeps struct {
	Collector *CollectMetricsUseCase
	Engine    *GenerateRecommendationUseCase
	Applier   *ApplyActionsUseCase
	Store     port.ResultStore

	History   repository.CycleRepository
	Archive   port.ResultArchive
	Cache     port.CycleCache
	Events    port.CycleEventPublisher
	Telemetry port.MetricsPublisher
	Notifier  port.NotificationService
	Progress  port.ProgressReporter
}

// RunCycleUseCase выполняет один цикл: сбор, анализ, применение, сохранение
type RunCycleUseCase struct {
	deps   RunCycleDeps
	config RunCycleConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewRunCycleUseCase создает новый use case
func NewRunCycleUseCase(deps RunCycleDeps, config RunCycleConfig, log *logger.Logger) *RunCycleUseCase {
	if deps.Progress == nil {
		deps.Progress = port.NopProgressReporter{}
	}
	if config.WindowDuration <= 0 {
		config.WindowDuration = DefaultWindow
	}
	config.ArchivePrefix = strings.Trim(config.ArchivePrefix, "/")
	if config.ArchivePrefix == "" {
		config.ArchivePrefix = "cycles"
	}

	return &RunCycleUseCase{
		deps:   deps,
		config: config,
		logger: log,
		now:    time.Now,
	}
}

// Execute выполняет цикл последовательно. Ошибка возвращается только если
// результат не удалось записать в основное хранилище; результат при этом
// все равно возвращается.
func (uc *RunCycleUseCase) Execute(ctx context.Context) (*entity.CycleResult, error) {
	result := entity.NewCycleResult(uc.now())
	progress := uc.deps.Progress
	log := uc.logger.With("cycle_id", result.ID)

	progress.CycleStarted()
	uc.notify(result, dto.CycleEventStarted)
	log.Info("Optimization cycle started")

	// 1. Сбор метрик
	progress.CollectingMetrics()
	metrics := uc.deps.Collector.Execute(ctx, time.Time{}, uc.config.WindowDuration)

	// 2. Анализ
	progress.AnalyzingMetrics()
	rec, err := uc.deps.Engine.Execute(ctx, metrics)
	if err != nil {
		// 3a. Ошибка движка: применение пропускается
		progress.RecommendationFailed(err)
		result.Fail(metrics, err, uc.now())
		log.Warn("Recommendation failed, skipping apply", "error", err.Error())
	} else {
		// 3b. Применение
		progress.RecommendationReady(rec)
		report := uc.deps.Applier.Execute(ctx, rec)
		progress.ApplyFinished(report)
		result.Complete(metrics, rec, report, uc.now())
	}

	progress.CycleFinished(result)

	// 4. Основное хранилище
	location, err := uc.deps.Store.Save(ctx, result)
	if err != nil {
		log.Error("Failed to persist cycle result", err)
		return result, fmt.Errorf("failed to persist cycle result: %w", err)
	}
	progress.ResultSaved(location)

	// 5. Дополнительные sinks, best-effort
	uc.fanOut(ctx, result, log)

	actions := 0
	if result.Results != nil {
		actions = result.Results.Total()
	}
	log.Info("Optimization cycle finished",
		"status", result.Status.String(),
		"actions", actions,
		"duration", result.Duration().String())

	return result, nil
}

func (uc *RunCycleUseCase) fanOut(ctx context.Context, result *entity.CycleResult, log *logger.Logger) {
	if uc.deps.History != nil {
		if err := uc.deps.History.Save(ctx, result); err != nil {
			log.Warn("Failed to save cycle history", "error", err.Error())
		}
	}

	if uc.deps.Archive != nil {
		uc.archive(ctx, result, log)
	}

	if uc.deps.Cache != nil {
		if err := uc.deps.Cache.SetLatest(ctx, result); err != nil {
			log.Warn("Failed to cache latest cycle", "error", err.Error())
		}
	}

	if uc.deps.Events != nil {
		eventType := dto.CycleEventCompleted
		if result.Failed() {
			eventType = dto.CycleEventFailed
		}
		if err := uc.deps.Events.PublishCycleEvent(ctx, uc.event(result, eventType)); err != nil {
			log.Warn("Failed to publish cycle event", "type", eventType, "error", err.Error())
		}
	}

	if uc.deps.Telemetry != nil {
		if err := uc.deps.Telemetry.PublishBatch(ctx, CycleTelemetry(result)); err != nil {
			log.Warn("Failed to publish cycle telemetry", "error", err.Error())
		}
	}

	if result.Failed() {
		uc.notify(result, dto.CycleEventFailed)
	} else {
		uc.notify(result, dto.CycleEventCompleted)
	}
}

func (uc *RunCycleUseCase) archive(ctx context.Context, result *entity.CycleResult, log *logger.Logger) {
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Warn("Failed to encode cycle for archive", "error", err.Error())
		return
	}

	key := ArchiveKey(uc.config.ArchivePrefix, result)
	url, err := uc.deps.Archive.Archive(ctx, port.ArchivedCycle{
		Key:      key,
		CycleID:  result.ID,
		Status:   result.Status.String(),
		Document: body,
	})
	if err != nil {
		log.Warn("Failed to archive cycle", "key", key, "error", err.Error())
		return
	}

	log.Debug("Cycle archived", "key", key, "url", url)
}

func (uc *RunCycleUseCase) notify(result *entity.CycleResult, eventType string) {
	if uc.deps.Notifier == nil {
		return
	}
	uc.deps.Notifier.Broadcast(uc.event(result, eventType))
}

func (uc *RunCycleUseCase) event(result *entity.CycleResult, eventType string) *dto.CycleEventDTO {
	event := &dto.CycleEventDTO{
		Type:      eventType,
		CycleID:   result.ID,
		Timestamp: uc.now().UTC(),
	}
	if eventType != dto.CycleEventStarted {
		event.Summary = dto.FromCycleResult(result)
	}
	return event
}

// ArchiveKey строит ключ архива: <prefix>/YYYY/MM/DD/<timestamp>_<id>.json
func ArchiveKey(prefix string, result *entity.CycleResult) string {
	started := result.StartedAt.UTC()
	return path.Join(
		prefix,
		started.Format("2006"),
		started.Format("01"),
		started.Format("02"),
		fmt.Sprintf("%s_%s.json", started.Format("20060102T150405Z"), result.ID),
	)
}

// CycleTelemetry возвращает операционные метрики цикла
func CycleTelemetry(result *entity.CycleResult) []port.TelemetryPoint {
	timestamp := result.FinishedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	dims := map[string]string{"Status": result.Status.String()}

	var applied, skipped, errored, degraded float64
	if result.Results != nil {
		applied = float64(len(result.Results.AppliedChanges))
		skipped = float64(len(result.Results.SkippedChanges))
		errored = float64(len(result.Results.Errors))
	}
	if result.Metrics != nil {
		degraded = float64(len(result.Metrics.DegradedCategories()))
	}

	return []port.TelemetryPoint{
		{Name: "ActionsApplied", Value: applied, Unit: port.UnitCount, Dimensions: dims, Timestamp: timestamp},
		{Name: "ActionsSkipped", Value: skipped, Unit: port.UnitCount, Dimensions: dims, Timestamp: timestamp},
		{Name: "ActionErrors", Value: errored, Unit: port.UnitCount, Dimensions: dims, Timestamp: timestamp},
		{Name: "CycleDuration", Value: result.Duration().Seconds(), Unit: port.UnitSeconds, Dimensions: dims, Timestamp: timestamp},
		{Name: "DegradedCategories", Value: degraded, Unit: port.UnitCount, Dimensions: dims, Timestamp: timestamp},
	}
}
