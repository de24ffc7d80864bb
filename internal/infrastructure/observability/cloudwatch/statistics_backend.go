package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// GetMetricStatisticsAPI is the subset of the CloudWatch client used by StatisticsBackend.
type GetMetricStatisticsAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// StatisticsBackend reads metric statistics from AWS CloudWatch.
type StatisticsBackend struct {
	client GetMetricStatisticsAPI
}

// NewStatisticsBackend creates a backend on top of a CloudWatch client.
func NewStatisticsBackend(client GetMetricStatisticsAPI) *StatisticsBackend {
	return &StatisticsBackend{client: client}
}

// NewStatisticsBackendFromConfig creates a backend from a shared AWS config.
func NewStatisticsBackendFromConfig(cfg aws.Config) *StatisticsBackend {
	return NewStatisticsBackend(cloudwatch.NewFromConfig(cfg))
}

// GetMetricStatistics issues one GetMetricStatistics call. No retries: a failure
// degrades the category in the caller.
func (b *StatisticsBackend) GetMetricStatistics(ctx context.Context, query port.MetricQuery) ([]entity.Datapoint, error) {
	input, err := buildStatisticsInput(query)
	if err != nil {
		return nil, err
	}

	output, err := b.client.GetMetricStatistics(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("cloudwatch GetMetricStatistics %s/%s: %w", query.Namespace, query.MetricName, err)
	}

	points := make([]entity.Datapoint, 0, len(output.Datapoints))
	for _, dp := range output.Datapoints {
		points = append(points, convertDatapoint(dp))
	}

	return points, nil
}

// buildStatisticsInput converts a port query to the CloudWatch request.
func buildStatisticsInput(query port.MetricQuery) (*cloudwatch.GetMetricStatisticsInput, error) {
	if query.Namespace == "" || query.MetricName == "" {
		return nil, fmt.Errorf("namespace and metric name are required")
	}
	if query.Period < time.Second {
		return nil, fmt.Errorf("period must be at least one second")
	}

	statistics := make([]types.Statistic, 0, len(query.Statistics))
	for _, stat := range query.Statistics {
		statistics = append(statistics, types.Statistic(stat.String()))
	}

	return &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(query.Namespace),
		MetricName: aws.String(query.MetricName),
		StartTime:  aws.Time(query.Start),
		EndTime:    aws.Time(query.End),
		Period:     aws.Int32(int32(query.Period / time.Second)),
		Statistics: statistics,
		Dimensions: dimensions(nil, query.Dimensions),
	}, nil
}

// convertDatapoint converts a CloudWatch datapoint to the domain type.
func convertDatapoint(dp types.Datapoint) entity.Datapoint {
	point := entity.Datapoint{
		Unit: string(dp.Unit),
	}
	if dp.Timestamp != nil {
		point.Timestamp = dp.Timestamp.UTC()
	}
	if dp.Average != nil {
		v := *dp.Average
		point.Average = &v
	}
	if dp.Maximum != nil {
		v := *dp.Maximum
		point.Maximum = &v
	}
	return point
}
