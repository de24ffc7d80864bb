package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUSampler снимает загрузку CPU хоста
type CPUSampler struct {
	interval time.Duration
}

// NewCPUSampler создает новый CPU sampler
func NewCPUSampler(interval time.Duration) *CPUSampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &CPUSampler{interval: interval}
}

// Sample возвращает общий процент использования CPU за интервал
func (s *CPUSampler) Sample(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("cpu percent: no data")
	}
	return percentages[0], nil
}
