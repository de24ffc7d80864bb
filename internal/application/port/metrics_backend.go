package port

import (
	"context"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// MetricQuery описывает запрос статистики одной метрики
type MetricQuery struct {
	Namespace  string
	MetricName string
	Start      time.Time
	End        time.Time
	Period     time.Duration
	Statistics []valueobject.Statistic
	Dimensions map[string]string
}

// MetricsBackend определяет интерфейс источника метрик (Port)
// Реализация будет в Infrastructure слое (CloudWatch, host)
type MetricsBackend interface {
	// GetMetricStatistics возвращает точки статистики за окно запроса
	GetMetricStatistics(ctx context.Context, query MetricQuery) ([]entity.Datapoint, error)
}
