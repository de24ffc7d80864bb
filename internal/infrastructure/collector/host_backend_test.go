package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

type fixedSampler struct {
	value float64
	err   error
}

func (s fixedSampler) Sample(context.Context) (float64, error) {
	return s.value, s.err
}

func TestHostBackend_GetMetricStatistics(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backend := NewHostBackendWithSamplers(fixedSampler{value: 37.5}, fixedSampler{value: 4})

	tests := []struct {
		name      string
		query     port.MetricQuery
		wantValue float64
		wantUnit  string
		wantErr   error
	}{
		{
			name:      "cpu",
			query:     port.MetricQuery{Namespace: "AWS/EC2", MetricName: "CPUUtilization", End: end},
			wantValue: 37.5,
			wantUnit:  "Percent",
		},
		{
			name:      "db connections",
			query:     port.MetricQuery{Namespace: "AWS/RDS", MetricName: "DatabaseConnections", End: end},
			wantValue: 4,
			wantUnit:  "Count",
		},
		{
			name:    "alb latency unsupported",
			query:   port.MetricQuery{Namespace: "AWS/ApplicationELB", MetricName: "TargetResponseTime", End: end},
			wantErr: ErrUnsupportedQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := backend.GetMetricStatistics(context.Background(), tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(points) != 1 {
				t.Fatalf("expected 1 point, got %d", len(points))
			}
			p := points[0]
			if *p.Average != tt.wantValue || *p.Maximum != tt.wantValue || p.Unit != tt.wantUnit || !p.Timestamp.Equal(end) {
				t.Fatalf("unexpected point: %+v", p)
			}
		})
	}
}

func TestHostBackend_SamplerError(t *testing.T) {
	backend := NewHostBackendWithSamplers(fixedSampler{err: errors.New("permission denied")}, fixedSampler{})

	_, err := backend.GetMetricStatistics(context.Background(), port.MetricQuery{Namespace: "AWS/EC2", MetricName: "CPUUtilization"})
	if err == nil {
		t.Fatalf("expected sampler error")
	}
}

func TestConnectionCounter_Sample(t *testing.T) {
	counter := NewConnectionCounter([]uint32{5432, 3306})
	counter.list = func(context.Context, string) ([]net.ConnectionStat, error) {
		return []net.ConnectionStat{
			{Status: "ESTABLISHED", Laddr: net.Addr{Port: 51000}, Raddr: net.Addr{Port: 5432}},
			{Status: "ESTABLISHED", Laddr: net.Addr{Port: 3306}, Raddr: net.Addr{Port: 60000}},
			{Status: "TIME_WAIT", Laddr: net.Addr{Port: 51001}, Raddr: net.Addr{Port: 5432}},
			{Status: "ESTABLISHED", Laddr: net.Addr{Port: 51002}, Raddr: net.Addr{Port: 443}},
		}, nil
	}

	got, err := counter.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got != 2 {
		t.Fatalf("Sample() = %v, want 2", got)
	}
}
