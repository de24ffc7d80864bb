package valueobject

import (
	"errors"
	"time"
)

// TimeRange - окно сбора метрик [start, end] в UTC (Value Object)
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает окно из явных границ
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("window bounds cannot be zero")
	}
	if !start.Before(end) {
		return TimeRange{}, errors.New("window start must be before end")
	}
	return TimeRange{start: start.UTC(), end: end.UTC()}, nil
}

// NewTrailingTimeRange создает окно длиной duration, заканчивающееся в end.
// Нулевой end означает текущий момент.
func NewTrailingTimeRange(end time.Time, duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, errors.New("window duration must be positive")
	}
	if end.IsZero() {
		end = time.Now()
	}
	end = end.UTC()
	return TimeRange{start: end.Add(-duration), end: end}, nil
}

func (tr TimeRange) Start() time.Time { return tr.start }

func (tr TimeRange) End() time.Time { return tr.end }

func (tr TimeRange) IsZero() bool { return tr.start.IsZero() && tr.end.IsZero() }

func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Datapoints возвращает, сколько точек с шагом period вернет backend (с округлением вверх)
func (tr TimeRange) Datapoints(period time.Duration) int {
	if period <= 0 || tr.IsZero() {
		return 0
	}
	d := tr.Duration()
	n := int(d / period)
	if d%period != 0 {
		n++
	}
	return n
}
