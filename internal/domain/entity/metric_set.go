package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// Datapoint - одна временная точка статистики от metrics backend
type Datapoint struct {
	Timestamp time.Time `json:"timestamp"`
	Average   *float64  `json:"average,omitempty"`
	Maximum   *float64  `json:"maximum,omitempty"`
	Unit      string    `json:"unit,omitempty"`
}

// Value возвращает значение указанной статистики, если оно есть в точке
func (d Datapoint) Value(stat valueobject.Statistic) (float64, bool) {
	switch stat {
	case valueobject.Average:
		if d.Average != nil {
			return *d.Average, true
		}
	case valueobject.Maximum:
		if d.Maximum != nil {
			return *d.Maximum, true
		}
	}
	return 0, false
}

// CostSnapshot - снимок стоимости инфраструктуры
type CostSnapshot struct {
	DailyCost         float64  `json:"daily_cost"`
	MonthlyProjection float64  `json:"monthly_projection"`
	TopServices       []string `json:"top_services"`
	Currency          string   `json:"currency,omitempty"`
	Source            string   `json:"source,omitempty"`
}

// IsZero сообщает, что снимок пустой (источник стоимости недоступен)
func (c CostSnapshot) IsZero() bool {
	return c.DailyCost == 0 && c.MonthlyProjection == 0 && len(c.TopServices) == 0
}

func (c CostSnapshot) clone() CostSnapshot {
	c.TopServices = append([]string(nil), c.TopServices...)
	return c
}

// MetricSet - метрики одного цикла, сгруппированные по категориям.
// Иммутабелен после Build(): аксессоры возвращают копии.
type MetricSet struct {
	collectedAt time.Time
	window      valueobject.TimeRange
	period      time.Duration
	series      map[valueobject.MetricCategory][]Datapoint
	cost        CostSnapshot
	errors      map[valueobject.MetricCategory]string
}

// MetricSetBuilder собирает MetricSet по категориям
type MetricSetBuilder struct {
	set *MetricSet
}

// NewMetricSetBuilder создает builder для окна и периода агрегации
func NewMetricSetBuilder(window valueobject.TimeRange, period time.Duration) *MetricSetBuilder {
	return &MetricSetBuilder{
		set: &MetricSet{
			window: window,
			period: period,
			series: make(map[valueobject.MetricCategory][]Datapoint, 3),
			errors: make(map[valueobject.MetricCategory]string),
		},
	}
}

// SetSeries сохраняет точки категории, отсортированные по времени
func (b *MetricSetBuilder) SetSeries(category valueobject.MetricCategory, points []Datapoint) error {
	if !category.IsQueried() {
		return fmt.Errorf("category %s is not a time series", category)
	}

	copied := make([]Datapoint, len(points))
	copy(copied, points)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Timestamp.Before(copied[j].Timestamp)
	})

	b.set.series[category] = copied
	return nil
}

// SetCost сохраняет снимок стоимости
func (b *MetricSetBuilder) SetCost(cost CostSnapshot) {
	b.set.cost = cost.clone()
}

// RecordError помечает категорию как деградировавшую
func (b *MetricSetBuilder) RecordError(category valueobject.MetricCategory, err error) {
	if err == nil {
		return
	}
	b.set.errors[category] = err.Error()
}

// Build завершает сборку. Отсутствующие категории получают пустой список.
func (b *MetricSetBuilder) Build() *MetricSet {
	for _, category := range valueobject.QueriedCategories() {
		if _, ok := b.set.series[category]; !ok {
			b.set.series[category] = []Datapoint{}
		}
	}
	if b.set.cost.TopServices == nil {
		b.set.cost.TopServices = []string{}
	}
	b.set.collectedAt = time.Now().UTC()

	set := b.set
	b.set = nil
	return set
}

// CollectedAt возвращает время завершения сбора
func (m *MetricSet) CollectedAt() time.Time {
	return m.collectedAt
}

// Window возвращает окно сбора
func (m *MetricSet) Window() valueobject.TimeRange {
	return m.window
}

// Period возвращает период агрегации точек
func (m *MetricSet) Period() time.Duration {
	return m.period
}

// Series возвращает копию точек категории
func (m *MetricSet) Series(category valueobject.MetricCategory) []Datapoint {
	points := m.series[category]
	copied := make([]Datapoint, len(points))
	copy(copied, points)
	return copied
}

// Cost возвращает копию снимка стоимости
func (m *MetricSet) Cost() CostSnapshot {
	return m.cost.clone()
}

// Errors возвращает копию ошибок сбора по категориям
func (m *MetricSet) Errors() map[valueobject.MetricCategory]string {
	result := make(map[valueobject.MetricCategory]string, len(m.errors))
	for k, v := range m.errors {
		result[k] = v
	}
	return result
}

// DegradedCategories возвращает категории, сбор которых завершился ошибкой
func (m *MetricSet) DegradedCategories() []valueobject.MetricCategory {
	degraded := make([]valueobject.MetricCategory, 0, len(m.errors))
	for _, category := range valueobject.AllMetricCategories() {
		if _, ok := m.errors[category]; ok {
			degraded = append(degraded, category)
		}
	}
	return degraded
}

// IsDegraded сообщает, что хотя бы одна категория деградировала
func (m *MetricSet) IsDegraded() bool {
	return len(m.errors) > 0
}

type metricSetWindowJSON struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	PeriodSeconds int64     `json:"period_seconds"`
}

type metricSetJSON struct {
	EC2CPUUtilization []Datapoint         `json:"ec2_cpu_utilization"`
	RDSConnections    []Datapoint         `json:"rds_connections"`
	ALBResponseTime   []Datapoint         `json:"alb_response_time"`
	CostData          CostSnapshot        `json:"cost_data"`
	Window            metricSetWindowJSON `json:"window"`
	CollectedAt       time.Time           `json:"collected_at"`
	CollectionErrors  map[string]string   `json:"collection_errors,omitempty"`
}

// MarshalJSON сериализует MetricSet в плоский объект с четырьмя ключами категорий
func (m *MetricSet) MarshalJSON() ([]byte, error) {
	payload := metricSetJSON{
		EC2CPUUtilization: m.Series(valueobject.EC2CPUUtilization),
		RDSConnections:    m.Series(valueobject.RDSConnections),
		ALBResponseTime:   m.Series(valueobject.ALBResponseTime),
		CostData:          m.Cost(),
		Window: metricSetWindowJSON{
			Start:         m.window.Start(),
			End:           m.window.End(),
			PeriodSeconds: int64(m.period / time.Second),
		},
		CollectedAt: m.collectedAt,
	}

	if len(m.errors) > 0 {
		payload.CollectionErrors = make(map[string]string, len(m.errors))
		for category, message := range m.errors {
			payload.CollectionErrors[category.String()] = message
		}
	}

	return json.Marshal(payload)
}

// UnmarshalJSON восстанавливает MetricSet из хранилища
func (m *MetricSet) UnmarshalJSON(data []byte) error {
	var payload metricSetJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	window, err := valueobject.NewTimeRange(payload.Window.Start, payload.Window.End)
	if err != nil {
		window = valueobject.TimeRange{}
	}

	builder := NewMetricSetBuilder(window, time.Duration(payload.Window.PeriodSeconds)*time.Second)
	_ = builder.SetSeries(valueobject.EC2CPUUtilization, payload.EC2CPUUtilization)
	_ = builder.SetSeries(valueobject.RDSConnections, payload.RDSConnections)
	_ = builder.SetSeries(valueobject.ALBResponseTime, payload.ALBResponseTime)
	builder.SetCost(payload.CostData)
	for category, message := range payload.CollectionErrors {
		builder.set.errors[valueobject.MetricCategory(category)] = message
	}

	restored := builder.Build()
	restored.collectedAt = payload.CollectedAt
	*m = *restored

	return nil
}
