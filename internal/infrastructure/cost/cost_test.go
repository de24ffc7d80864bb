package cost

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
)

type fakeCostExplorer struct {
	inputs []costexplorer.GetCostAndUsageInput
	pages  []*costexplorer.GetCostAndUsageOutput
	err    error
}

func (f *fakeCostExplorer) GetCostAndUsage(_ context.Context, params *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.inputs = append(f.inputs, *params)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func day(start string, amounts map[string]string) types.ResultByTime {
	groups := make([]types.Group, 0, len(amounts))
	for service, amount := range amounts {
		groups = append(groups, types.Group{
			Keys: []string{service},
			Metrics: map[string]types.MetricValue{
				costMetric: {Amount: aws.String(amount), Unit: aws.String("USD")},
			},
		})
	}
	return types.ResultByTime{TimePeriod: &types.DateInterval{Start: aws.String(start)}, Groups: groups}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource()

	snap, err := src.GetCostSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetCostSnapshot() error = %v", err)
	}
	if snap.DailyCost != 45.67 || snap.MonthlyProjection != 1370.10 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !reflect.DeepEqual(snap.TopServices, []string{"EC2", "RDS", "ALB"}) || snap.Source != "static" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	snap.TopServices[0] = "mutated"
	again, _ := src.GetCostSnapshot(context.Background())
	if again.TopServices[0] != "EC2" {
		t.Fatalf("snapshot must be copied")
	}
}

func TestExplorerSource_GetCostSnapshot(t *testing.T) {
	api := &fakeCostExplorer{pages: []*costexplorer.GetCostAndUsageOutput{
		{
			ResultsByTime: []types.ResultByTime{
				day("2026-02-27", map[string]string{"Amazon EC2": "20.10", "Amazon RDS": "10.05"}),
			},
			NextPageToken: aws.String("page-2"),
		},
		{
			ResultsByTime: []types.ResultByTime{
				day("2026-02-28", map[string]string{"Amazon EC2": "20.20", "Amazon RDS": "10.10", "Elastic Load Balancing": "5.00", "Amazon S3": "0.30"}),
			},
		},
	}}
	src := NewExplorerSource(api, 7)
	src.now = func() time.Time { return time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC) }

	snap, err := src.GetCostSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetCostSnapshot() error = %v", err)
	}

	if snap.DailyCost != 35.6 {
		t.Errorf("DailyCost = %v, want 35.6", snap.DailyCost)
	}
	if snap.MonthlyProjection != 1068 {
		t.Errorf("MonthlyProjection = %v, want 1068", snap.MonthlyProjection)
	}
	want := []string{"Amazon EC2", "Amazon RDS", "Elastic Load Balancing"}
	if !reflect.DeepEqual(snap.TopServices, want) {
		t.Errorf("TopServices = %v, want %v", snap.TopServices, want)
	}
	if snap.Currency != "USD" || snap.Source != SourceCostExplorer {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if len(api.inputs) != 2 || aws.ToString(api.inputs[1].NextPageToken) != "page-2" {
		t.Fatalf("expected paginated requests, got %d", len(api.inputs))
	}
	first := api.inputs[0]
	if aws.ToString(first.TimePeriod.Start) != "2026-02-22" || aws.ToString(first.TimePeriod.End) != "2026-03-01" {
		t.Errorf("unexpected period %s..%s", aws.ToString(first.TimePeriod.Start), aws.ToString(first.TimePeriod.End))
	}
	if first.Granularity != types.GranularityDaily || aws.ToString(first.GroupBy[0].Key) != "SERVICE" {
		t.Errorf("unexpected request: %+v", first)
	}
}

func TestExplorerSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeCostExplorer
	}{
		{name: "api error", api: &fakeCostExplorer{err: errors.New("AccessDeniedException")}},
		{name: "empty results", api: &fakeCostExplorer{pages: []*costexplorer.GetCostAndUsageOutput{{}}}},
		{name: "bad amount", api: &fakeCostExplorer{pages: []*costexplorer.GetCostAndUsageOutput{{
			ResultsByTime: []types.ResultByTime{day("2026-02-28", map[string]string{"Amazon EC2": "n/a"})},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExplorerSource(tt.api, 0).GetCostSnapshot(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
