package service

import (
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

func buildMetricSet(t *testing.T) *entity.MetricSet {
	t.Helper()
	window, err := valueobject.NewTrailingTimeRange(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Hour)
	if err != nil {
		t.Fatalf("NewTrailingTimeRange() error = %v", err)
	}

	avg, max := 42.5, 88.0
	builder := entity.NewMetricSetBuilder(window, DefaultPeriod)
	_ = builder.SetSeries(valueobject.EC2CPUUtilization, []entity.Datapoint{
		{Timestamp: window.Start(), Average: &avg, Maximum: &max, Unit: "Percent"},
	})
	builder.SetCost(entity.CostSnapshot{DailyCost: 45.67, MonthlyProjection: 1370.10, TopServices: []string{"EC2", "RDS", "ALB"}})
	return builder.Build()
}

func TestPromptBuilder_Deterministic(t *testing.T) {
	builder := NewPromptBuilder()
	metrics := buildMetricSet(t)

	first, err := builder.Build(metrics)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := builder.Build(metrics)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if first != second {
		t.Fatalf("expected identical prompts")
	}
}

func TestPromptBuilder_ContainsMetricsAndSchema(t *testing.T) {
	prompt, err := NewPromptBuilder().Build(buildMetricSet(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, want := range []string{
		`"ec2_cpu_utilization"`,
		`"cost_data"`,
		`"daily_cost": 45.67`,
		`"priority_actions"`,
		`alto/medio/bajo`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %s", want)
		}
	}
}

func TestPromptBuilder_NilMetrics(t *testing.T) {
	if _, err := NewPromptBuilder().Build(nil); err == nil {
		t.Fatalf("expected error")
	}
}
