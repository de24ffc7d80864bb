package service

import (
	"errors"
	"sort"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// SeriesSummary - сводка по одной категории метрик
type SeriesSummary struct {
	Category valueobject.MetricCategory
	Points   int
	Average  float64
	Peak     float64
	P95      float64
	// Spikes - точки, у которых Maximum выше P95 средних
	Spikes   int
	HasData  bool
	Degraded bool
}

// MetricSummarizer предоставляет агрегаты по сериям MetricSet (Domain Service)
type MetricSummarizer struct{}

// NewMetricSummarizer создает новый MetricSummarizer
func NewMetricSummarizer() *MetricSummarizer {
	return &MetricSummarizer{}
}

// Summarize строит сводку по всем запрашиваемым категориям в порядке сбора
func (s *MetricSummarizer) Summarize(metrics *entity.MetricSet) []SeriesSummary {
	if metrics == nil {
		return nil
	}

	errs := metrics.Errors()
	summaries := make([]SeriesSummary, 0, len(valueobject.QueriedCategories()))
	for _, category := range valueobject.QueriedCategories() {
		points := metrics.Series(category)
		summary := SeriesSummary{Category: category, Points: len(points)}
		_, summary.Degraded = errs[category]

		if avg, err := s.CalculateAverage(points, valueobject.Average); err == nil {
			summary.Average = avg
			summary.HasData = true
		}
		if peak, err := s.CalculateMax(points, valueobject.Maximum); err == nil {
			summary.Peak = peak
		}
		if p95, err := s.CalculatePercentile(points, valueobject.Average, 95); err == nil {
			summary.P95 = p95
			summary.Spikes = len(s.FindPeaks(points, valueobject.Maximum, p95))
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

// CalculateAverage вычисляет среднее значение статистики по точкам
func (s *MetricSummarizer) CalculateAverage(points []entity.Datapoint, stat valueobject.Statistic) (float64, error) {
	values := collectValues(points, stat)
	if len(values) == 0 {
		return 0, errors.New("no datapoints to aggregate")
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values)), nil
}

// CalculateMax находит максимальное значение статистики
func (s *MetricSummarizer) CalculateMax(points []entity.Datapoint, stat valueobject.Statistic) (float64, error) {
	values := collectValues(points, stat)
	if len(values) == 0 {
		return 0, errors.New("no datapoints to aggregate")
	}

	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}

	return max, nil
}

// CalculatePercentile вычисляет процентиль статистики
func (s *MetricSummarizer) CalculatePercentile(points []entity.Datapoint, stat valueobject.Statistic, percentile float64) (float64, error) {
	if percentile < 0 || percentile > 100 {
		return 0, errors.New("percentile must be between 0 and 100")
	}

	values := collectValues(points, stat)
	if len(values) == 0 {
		return 0, errors.New("no datapoints to aggregate")
	}

	sort.Float64s(values)
	index := int(float64(len(values)-1) * (percentile / 100.0))

	return values[index], nil
}

// FindPeaks возвращает точки, где статистика превышает порог
func (s *MetricSummarizer) FindPeaks(points []entity.Datapoint, stat valueobject.Statistic, threshold float64) []entity.Datapoint {
	var peaks []entity.Datapoint
	for _, p := range points {
		if v, ok := p.Value(stat); ok && v > threshold {
			peaks = append(peaks, p)
		}
	}
	return peaks
}

func collectValues(points []entity.Datapoint, stat valueobject.Statistic) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := p.Value(stat); ok {
			values = append(values, v)
		}
	}
	return values
}
