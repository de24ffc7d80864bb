package valueobject

import "fmt"

// Statistic - имя статистики CloudWatch
type Statistic string

const (
	Average Statistic = "Average"
	Maximum Statistic = "Maximum"
)

// Validate проверяет, что статистика поддерживается
func (s Statistic) Validate() error {
	switch s {
	case Average, Maximum:
		return nil
	default:
		return fmt.Errorf("unsupported statistic: %s", string(s))
	}
}

// String возвращает строковое представление статистики
func (s Statistic) String() string {
	return string(s)
}

// DefaultStatistics возвращает набор статистик, запрашиваемый для каждой категории
func DefaultStatistics() []Statistic {
	return []Statistic{Average, Maximum}
}
