package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/service"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// DefaultWindow - длина окна сбора метрик по умолчанию
const DefaultWindow = time.Hour

// CollectMetricsUseCase собирает метрики по каталогу и снимок стоимости.
// Ошибка одной категории не прерывает сбор остальных.
type CollectMetricsUseCase struct {
	backend    port.MetricsBackend
	cost       port.CostSource
	catalog    *service.MetricCatalog
	validator  *service.QueryValidator
	summarizer *service.MetricSummarizer
	logger     *logger.Logger
}

// NewCollectMetricsUseCase создает новый use case
func NewCollectMetricsUseCase(
	backend port.MetricsBackend,
	cost port.CostSource,
	catalog *service.MetricCatalog,
	validator *service.QueryValidator,
	summarizer *service.MetricSummarizer,
	logger *logger.Logger,
) *CollectMetricsUseCase {
	return &CollectMetricsUseCase{
		backend:    backend,
		cost:       cost,
		catalog:    catalog,
		validator:  validator,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Execute собирает MetricSet за окно длиной windowDuration, заканчивающееся в windowEnd.
// Нулевой windowEnd означает текущий момент, windowDuration <= 0 означает один час.
func (uc *CollectMetricsUseCase) Execute(ctx context.Context, windowEnd time.Time, windowDuration time.Duration) *entity.MetricSet {
	if windowDuration <= 0 {
		windowDuration = DefaultWindow
	}

	// duration > 0, ошибки здесь быть не может
	window, _ := valueobject.NewTrailingTimeRange(windowEnd, windowDuration)
	builder := entity.NewMetricSetBuilder(window, uc.catalog.Period())

	// 1. Time-series категории строго по порядку каталога
	for _, spec := range uc.catalog.Entries() {
		points, err := uc.collectSeries(ctx, spec, window)
		if err != nil {
			uc.logger.Warn("Metric category degraded",
				"category", spec.Category.String(),
				"namespace", spec.Namespace,
				"metric", spec.MetricName,
				"error", err.Error())
			builder.RecordError(spec.Category, err)
			continue
		}

		if err := builder.SetSeries(spec.Category, points); err != nil {
			builder.RecordError(spec.Category, err)
			continue
		}

		uc.logger.Debug("Collected metric category", "category", spec.Category.String(), "points", len(points))
	}

	// 2. Снимок стоимости
	if uc.cost != nil {
		snapshot, err := uc.cost.GetCostSnapshot(ctx)
		if err != nil {
			uc.logger.Warn("Cost data degraded", "source", uc.cost.Name(), "error", err.Error())
			builder.SetCost(entity.CostSnapshot{Source: uc.cost.Name()})
			builder.RecordError(valueobject.CostData, err)
		} else {
			builder.SetCost(snapshot)
		}
	}

	metrics := builder.Build()

	for _, summary := range uc.summarizer.Summarize(metrics) {
		if !summary.HasData {
			continue
		}
		uc.logger.Info("Metric summary",
			"category", summary.Category.String(),
			"points", summary.Points,
			"avg", fmt.Sprintf("%.2f", summary.Average),
			"peak", fmt.Sprintf("%.2f", summary.Peak),
			"spikes", summary.Spikes)
	}

	return metrics
}

func (uc *CollectMetricsUseCase) collectSeries(ctx context.Context, spec service.MetricSpec, window valueobject.TimeRange) ([]entity.Datapoint, error) {
	if uc.backend == nil {
		return nil, errors.New("metrics backend is not configured")
	}

	statistics := uc.catalog.Statistics()
	if err := uc.validator.Validate(spec, window, uc.catalog.Period(), statistics); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	points, err := uc.backend.GetMetricStatistics(ctx, port.MetricQuery{
		Namespace:  spec.Namespace,
		MetricName: spec.MetricName,
		Start:      window.Start(),
		End:        window.End(),
		Period:     uc.catalog.Period(),
		Statistics: statistics,
		Dimensions: spec.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s/%s: %w", spec.Namespace, spec.MetricName, err)
	}

	return points, nil
}
