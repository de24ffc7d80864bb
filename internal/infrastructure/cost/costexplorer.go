package cost

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

const (
	// SourceCostExplorer - имя источника AWS Cost Explorer
	SourceCostExplorer = "cost-explorer"

	costMetric      = "UnblendedCost"
	dateLayout      = "2006-01-02"
	projectionDays  = 30
	topServiceCount = 3
)

// GetCostAndUsageAPI - подмножество клиента Cost Explorer
type GetCostAndUsageAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// ExplorerSource считает стоимость по данным AWS Cost Explorer.
// Реализует интерфейс port.CostSource
type ExplorerSource struct {
	api          GetCostAndUsageAPI
	lookbackDays int
	now          func() time.Time
}

// NewExplorerSource создает источник с окном lookbackDays полных дней
func NewExplorerSource(api GetCostAndUsageAPI, lookbackDays int) *ExplorerSource {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &ExplorerSource{api: api, lookbackDays: lookbackDays, now: time.Now}
}

// NewExplorerSourceFromConfig создает источник на общем AWS config
func NewExplorerSourceFromConfig(awsCfg aws.Config, lookbackDays int) *ExplorerSource {
	return NewExplorerSource(costexplorer.NewFromConfig(awsCfg), lookbackDays)
}

// Name возвращает имя источника
func (s *ExplorerSource) Name() string {
	return SourceCostExplorer
}

// GetCostSnapshot запрашивает дневную стоимость по сервисам.
// Дневная стоимость - последний полный день, прогноз на месяц - день × 30.
func (s *ExplorerSource) GetCostSnapshot(ctx context.Context) (entity.CostSnapshot, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -s.lookbackDays)

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(start.Format(dateLayout)),
			End:   aws.String(today.Format(dateLayout)),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{costMetric},
		GroupBy: []types.GroupDefinition{{
			Type: types.GroupDefinitionTypeDimension,
			Key:  aws.String("SERVICE"),
		}},
	}

	var results []types.ResultByTime
	for {
		out, err := s.api.GetCostAndUsage(ctx, input)
		if err != nil {
			return entity.CostSnapshot{}, fmt.Errorf("get cost and usage: %w", err)
		}
		results = append(results, out.ResultsByTime...)
		if aws.ToString(out.NextPageToken) == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	return summarizeCost(results)
}

func summarizeCost(results []types.ResultByTime) (entity.CostSnapshot, error) {
	if len(results) == 0 {
		return entity.CostSnapshot{}, fmt.Errorf("cost explorer returned no results")
	}

	sort.SliceStable(results, func(i, j int) bool {
		return startOf(results[i]) < startOf(results[j])
	})

	byService := make(map[string]decimal.Decimal)
	lastDay := decimal.Zero
	currency := ""

	for i, day := range results {
		dayTotal := decimal.Zero
		for _, group := range day.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			metric, ok := group.Metrics[costMetric]
			if !ok {
				continue
			}
			amount, err := decimal.NewFromString(aws.ToString(metric.Amount))
			if err != nil {
				return entity.CostSnapshot{}, fmt.Errorf("parse amount for %s: %w", group.Keys[0], err)
			}
			if currency == "" {
				currency = aws.ToString(metric.Unit)
			}
			byService[group.Keys[0]] = byService[group.Keys[0]].Add(amount)
			dayTotal = dayTotal.Add(amount)
		}
		if i == len(results)-1 {
			lastDay = dayTotal
		}
	}

	services := make([]string, 0, len(byService))
	for name := range byService {
		services = append(services, name)
	}
	sort.Slice(services, func(i, j int) bool {
		ci, cj := byService[services[i]], byService[services[j]]
		if !ci.Equal(cj) {
			return ci.GreaterThan(cj)
		}
		return services[i] < services[j]
	})
	if len(services) > topServiceCount {
		services = services[:topServiceCount]
	}

	daily := lastDay.Round(2)
	return entity.CostSnapshot{
		DailyCost:         daily.InexactFloat64(),
		MonthlyProjection: lastDay.Mul(decimal.NewFromInt(projectionDays)).Round(2).InexactFloat64(),
		TopServices:       services,
		Currency:          currency,
		Source:            SourceCostExplorer,
	}, nil
}

func startOf(r types.ResultByTime) string {
	if r.TimePeriod == nil {
		return ""
	}
	return aws.ToString(r.TimePeriod.Start)
}
