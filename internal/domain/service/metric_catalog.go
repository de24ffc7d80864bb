package service

import (
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// DefaultPeriod - период агрегации точек CloudWatch
const DefaultPeriod = 300 * time.Second

// MetricSpec описывает, как собирать одну категорию метрик
type MetricSpec struct {
	Category   valueobject.MetricCategory
	Namespace  string
	MetricName string
	Unit       string
	Dimensions map[string]string
}

// MetricCatalog сопоставляет категории с метриками CloudWatch (Domain Service)
type MetricCatalog struct {
	entries    []MetricSpec
	period     time.Duration
	statistics []valueobject.Statistic
}

// NewMetricCatalog создает каталог с фиксированным набором категорий.
// dimensions опциональны и задаются per-category из конфигурации.
func NewMetricCatalog(period time.Duration, dimensions map[valueobject.MetricCategory]map[string]string) *MetricCatalog {
	if period <= 0 {
		period = DefaultPeriod
	}

	entries := []MetricSpec{
		{Category: valueobject.EC2CPUUtilization, Namespace: "AWS/EC2", MetricName: "CPUUtilization", Unit: "Percent"},
		{Category: valueobject.RDSConnections, Namespace: "AWS/RDS", MetricName: "DatabaseConnections", Unit: "Count"},
		{Category: valueobject.ALBResponseTime, Namespace: "AWS/ApplicationELB", MetricName: "TargetResponseTime", Unit: "Seconds"},
	}

	for i := range entries {
		if dims, ok := dimensions[entries[i].Category]; ok && len(dims) > 0 {
			copied := make(map[string]string, len(dims))
			for k, v := range dims {
				copied[k] = v
			}
			entries[i].Dimensions = copied
		}
	}

	return &MetricCatalog{
		entries:    entries,
		period:     period,
		statistics: valueobject.DefaultStatistics(),
	}
}

// Entries возвращает категории в порядке сбора
func (c *MetricCatalog) Entries() []MetricSpec {
	result := make([]MetricSpec, len(c.entries))
	copy(result, c.entries)
	return result
}

// Period возвращает период агрегации
func (c *MetricCatalog) Period() time.Duration {
	return c.period
}

// Statistics возвращает запрашиваемые статистики
func (c *MetricCatalog) Statistics() []valueobject.Statistic {
	result := make([]valueobject.Statistic, len(c.statistics))
	copy(result, c.statistics)
	return result
}
