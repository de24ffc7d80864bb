package port

import (
	"context"
	"time"
)

// TelemetryUnit - единица измерения телеметрии оптимизатора
type TelemetryUnit string

const (
	UnitCount   TelemetryUnit = "Count"
	UnitSeconds TelemetryUnit = "Seconds"
	UnitPercent TelemetryUnit = "Percent"
)

// TelemetryPoint - одна метрика о работе самого оптимизатора
type TelemetryPoint struct {
	Name       string
	Value      float64
	Unit       TelemetryUnit
	Dimensions map[string]string
	Timestamp  time.Time
}

// MetricsPublisher отправляет телеметрию цикла во внешнюю систему (Port).
// Вызывается один раз в конце цикла, синхронно.
type MetricsPublisher interface {
	PublishBatch(ctx context.Context, points []TelemetryPoint) error
}
