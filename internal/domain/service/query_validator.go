package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// MaxDatapoints - предел точек на один вызов GetMetricStatistics
const MaxDatapoints = 1440

// QueryValidator проверяет параметры запроса метрик перед обращением к backend (Domain Service)
type QueryValidator struct{}

// NewQueryValidator создает новый QueryValidator
func NewQueryValidator() *QueryValidator {
	return &QueryValidator{}
}

// Validate выполняет полную валидацию запроса категории
func (v *QueryValidator) Validate(spec MetricSpec, window valueobject.TimeRange, period time.Duration, statistics []valueobject.Statistic) error {
	if !spec.Category.IsQueried() {
		return fmt.Errorf("category %s cannot be queried", spec.Category)
	}

	if spec.Namespace == "" || spec.MetricName == "" {
		return errors.New("namespace and metric name are required")
	}

	if err := v.ValidatePeriod(period); err != nil {
		return err
	}

	if window.IsZero() {
		return errors.New("window cannot be empty")
	}

	if window.Duration() < period {
		return fmt.Errorf("window %s is shorter than period %s", window.Duration(), period)
	}

	if n := window.Datapoints(period); n > MaxDatapoints {
		return fmt.Errorf("window %s at period %s needs %d datapoints, limit is %d", window.Duration(), period, n, MaxDatapoints)
	}

	if len(statistics) == 0 {
		return errors.New("at least one statistic is required")
	}
	for _, stat := range statistics {
		if err := stat.Validate(); err != nil {
			return err
		}
	}

	for name, value := range spec.Dimensions {
		if name == "" || value == "" {
			return errors.New("dimension name and value cannot be empty")
		}
	}

	return nil
}

// ValidatePeriod проверяет, что период кратен минуте (ограничение CloudWatch)
func (v *QueryValidator) ValidatePeriod(period time.Duration) error {
	if period <= 0 {
		return errors.New("period must be positive")
	}
	if period%time.Minute != 0 {
		return fmt.Errorf("period %s must be a multiple of 60s", period)
	}
	return nil
}
