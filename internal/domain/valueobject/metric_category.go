package valueobject

import "errors"

// MetricCategory представляет категорию метрик в MetricSet (Value Object)
type MetricCategory string

const (
	EC2CPUUtilization MetricCategory = "ec2_cpu_utilization"
	RDSConnections    MetricCategory = "rds_connections"
	ALBResponseTime   MetricCategory = "alb_response_time"
	CostData          MetricCategory = "cost_data"
)

// Validate проверяет валидность категории
func (c MetricCategory) Validate() error {
	switch c {
	case EC2CPUUtilization, RDSConnections, ALBResponseTime, CostData:
		return nil
	default:
		return errors.New("invalid metric category")
	}
}

// IsQueried сообщает, собирается ли категория запросом к metrics backend
func (c MetricCategory) IsQueried() bool {
	return c == EC2CPUUtilization || c == RDSConnections || c == ALBResponseTime
}

// String возвращает строковое представление категории
func (c MetricCategory) String() string {
	return string(c)
}

// QueriedCategories возвращает категории time-series в порядке сбора
func QueriedCategories() []MetricCategory {
	return []MetricCategory{EC2CPUUtilization, RDSConnections, ALBResponseTime}
}

// AllMetricCategories возвращает все четыре ключа MetricSet
func AllMetricCategories() []MetricCategory {
	return []MetricCategory{EC2CPUUtilization, RDSConnections, ALBResponseTime, CostData}
}
