package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// ErrUnsupportedQuery возвращается для метрик, которые нельзя снять с хоста
var ErrUnsupportedQuery = errors.New("metric is not available on the host backend")

// Sampler снимает одно мгновенное значение метрики
type Sampler interface {
	Sample(ctx context.Context) (float64, error)
}

type hostMetric struct {
	sampler Sampler
	unit    string
}

// HostBackend отдает локальные метрики хоста в формате CloudWatch статистик.
// Используется для демонстрации без доступа к AWS.
// Реализует интерфейс port.MetricsBackend
type HostBackend struct {
	metrics map[string]hostMetric
}

// NewHostBackend создает backend с CPU sampler и счетчиком соединений к портам БД
func NewHostBackend(dbPorts []uint32) *HostBackend {
	return NewHostBackendWithSamplers(NewCPUSampler(0), NewConnectionCounter(dbPorts))
}

// NewHostBackendWithSamplers создает backend с произвольными samplers
func NewHostBackendWithSamplers(cpu, connections Sampler) *HostBackend {
	return &HostBackend{
		metrics: map[string]hostMetric{
			metricKey("AWS/EC2", "CPUUtilization"):      {sampler: cpu, unit: "Percent"},
			metricKey("AWS/RDS", "DatabaseConnections"): {sampler: connections, unit: "Count"},
		},
	}
}

// GetMetricStatistics возвращает одну точку на конце окна запроса
func (b *HostBackend) GetMetricStatistics(ctx context.Context, query port.MetricQuery) ([]entity.Datapoint, error) {
	metric, ok := b.metrics[metricKey(query.Namespace, query.MetricName)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", query.Namespace, query.MetricName, ErrUnsupportedQuery)
	}

	value, err := metric.sampler.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample %s/%s: %w", query.Namespace, query.MetricName, err)
	}

	avg, peak := value, value
	return []entity.Datapoint{{
		Timestamp: query.End.UTC(),
		Average:   &avg,
		Maximum:   &peak,
		Unit:      metric.unit,
	}}, nil
}

func metricKey(namespace, name string) string {
	return namespace + "/" + name
}
