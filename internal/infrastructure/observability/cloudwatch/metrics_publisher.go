package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

const (
	maxDatumsPerPut = 1000
	maxRetries      = 3
	initialBackoff  = 100 * time.Millisecond
)

// PutMetricDataAPI is the subset of the CloudWatch client used by MetricsPublisher.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig configures cycle telemetry.
type MetricsPublisherConfig struct {
	Namespace string
	// DefaultDimensions are attached to every datum; point dimensions win on conflict.
	DefaultDimensions map[string]string
	// HighResolution stores datums at 1-second resolution.
	HighResolution bool
}

// MetricsPublisher sends cycle telemetry to CloudWatch synchronously.
// A cycle produces a handful of datums, so nothing is buffered.
type MetricsPublisher struct {
	client     PutMetricDataAPI
	namespace  string
	defaults   map[string]string
	resolution int32
	now        func() time.Time
}

var _ port.MetricsPublisher = (*MetricsPublisher)(nil)

// NewMetricsPublisherFromConfig creates a publisher on top of a shared AWS config.
func NewMetricsPublisherFromConfig(awsCfg aws.Config, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	return NewMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg)
}

func NewMetricsPublisher(client PutMetricDataAPI, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	resolution := int32(60)
	if cfg.HighResolution {
		resolution = 1
	}

	return &MetricsPublisher{
		client:     client,
		namespace:  cfg.Namespace,
		defaults:   cfg.DefaultDimensions,
		resolution: resolution,
		now:        time.Now,
	}, nil
}

// PublishBatch sends points in chunks of at most 1000 datums.
// Points without a name are skipped.
func (p *MetricsPublisher) PublishBatch(ctx context.Context, points []port.TelemetryPoint) error {
	data := make([]types.MetricDatum, 0, len(points))
	for _, point := range points {
		if point.Name == "" {
			continue
		}
		data = append(data, p.toDatum(point))
	}

	for start := 0; start < len(data); start += maxDatumsPerPut {
		end := start + maxDatumsPerPut
		if end > len(data) {
			end = len(data)
		}
		if err := p.put(ctx, data[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *MetricsPublisher) put(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("PutMetricData to %s failed after %d attempts: %w", p.namespace, maxRetries, lastErr)
}

func (p *MetricsPublisher) toDatum(point port.TelemetryPoint) types.MetricDatum {
	timestamp := point.Timestamp
	if timestamp.IsZero() {
		timestamp = p.now()
	}

	return types.MetricDatum{
		MetricName:        aws.String(point.Name),
		Value:             aws.Float64(point.Value),
		Unit:              standardUnit(point.Unit),
		Timestamp:         aws.Time(timestamp.UTC()),
		Dimensions:        dimensions(p.defaults, point.Dimensions),
		StorageResolution: aws.Int32(p.resolution),
	}
}

// dimensions merges both maps and sorts by name so datums are stable.
func dimensions(defaults, own map[string]string) []types.Dimension {
	merged := make(map[string]string, len(defaults)+len(own))
	for name, value := range defaults {
		merged[name] = value
	}
	for name, value := range own {
		merged[name] = value
	}
	if len(merged) == 0 {
		return nil
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		out = append(out, types.Dimension{Name: aws.String(name), Value: aws.String(merged[name])})
	}
	return out
}

func standardUnit(unit port.TelemetryUnit) types.StandardUnit {
	switch unit {
	case port.UnitCount:
		return types.StandardUnitCount
	case port.UnitSeconds:
		return types.StandardUnitSeconds
	case port.UnitPercent:
		return types.StandardUnitPercent
	default:
		return types.StandardUnitNone
	}
}
