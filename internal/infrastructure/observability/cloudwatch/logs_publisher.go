package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

// PutLogEvents limits.
const (
	maxEventsPerPut  = 10000
	maxBytesPerPut   = 1048576
	perEventOverhead = 26
	maxEventBytes    = 256*1024 - perEventOverhead
)

const (
	defaultLogBatchSize  = 50
	defaultMaxPending    = 5000
	defaultLogFlushEvery = 5 * time.Second
	logFlushTimeout      = 30 * time.Second
)

// ErrLogQueueFull is returned by Publish when the pending queue is at capacity.
// The entry is dropped and counted.
var ErrLogQueueFull = errors.New("cloudwatch logs queue is full")

// LogsAPI is the subset of the CloudWatch Logs client used by LogsPublisher.
type LogsAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// LogsPublisherConfig configures log forwarding.
type LogsPublisherConfig struct {
	LogGroupName  string
	LogStreamName string
	// BatchSize pending entries wake the sender before the next tick.
	BatchSize int
	// MaxPending bounds memory while CloudWatch is unreachable.
	MaxPending    int
	FlushInterval time.Duration
	AutoCreate    bool
}

// LogsPublisher forwards logger entries to CloudWatch Logs.
// Publish only enqueues; a background sender does all network I/O.
type LogsPublisher struct {
	client     LogsAPI
	group      string
	stream     string
	autoCreate bool
	batchSize  int
	maxPending int
	interval   time.Duration

	mu      sync.Mutex
	pending []port.LogEntry
	dropped int

	// sendMu serialises PutLogEvents calls so batches stay in order.
	sendMu sync.Mutex

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ port.LogPublisher = (*LogsPublisher)(nil)

// NewLogsPublisherFromConfig creates a publisher on top of a shared AWS config.
func NewLogsPublisherFromConfig(ctx context.Context, awsCfg aws.Config, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	return NewLogsPublisher(ctx, cloudwatchlogs.NewFromConfig(awsCfg), cfg)
}

// NewLogsPublisher validates cfg, optionally creates the group and stream,
// and starts the background sender.
func NewLogsPublisher(ctx context.Context, client LogsAPI, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("log stream name is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultLogBatchSize
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = defaultMaxPending
		if cfg.MaxPending < cfg.BatchSize {
			cfg.MaxPending = cfg.BatchSize
		}
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultLogFlushEvery
	}

	p := &LogsPublisher{
		client:     client,
		group:      cfg.LogGroupName,
		stream:     cfg.LogStreamName,
		autoCreate: cfg.AutoCreate,
		batchSize:  cfg.BatchSize,
		maxPending: cfg.MaxPending,
		interval:   cfg.FlushInterval,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	go p.run()
	return p, nil
}

// Publish enqueues entry without blocking on the network.
func (p *LogsPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.mu.Lock()
	if len(p.pending) >= p.maxPending {
		p.dropped++
		p.mu.Unlock()
		return ErrLogQueueFull
	}
	p.pending = append(p.pending, entry)
	full := len(p.pending) >= p.batchSize
	p.mu.Unlock()

	if full {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush sends everything queued so far.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	entries := p.drain()
	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(entries))
	for _, entry := range entries {
		event, err := toLogEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	for _, batch := range splitLogBatches(events) {
		if err := p.put(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the sender and flushes what is left. Safe to call twice.
func (p *LogsPublisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
	})
	return p.Flush(ctx)
}

func (p *LogsPublisher) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-p.wake:
		case <-p.stop:
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), logFlushTimeout)
		// неотправленная пачка теряется, логгер не должен зависеть от CloudWatch
		_ = p.Flush(ctx)
		cancel()
	}
}

// drain takes the queue and appends a marker entry when entries were dropped.
func (p *LogsPublisher) drain() []port.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.pending
	p.pending = nil
	if p.dropped > 0 {
		entries = append(entries, port.LogEntry{
			Timestamp: time.Now(),
			Level:     port.LogLevelWarn,
			Message:   "Log entries dropped while CloudWatch Logs queue was full",
			Fields:    map[string]interface{}{"dropped": p.dropped},
		})
		p.dropped = 0
	}
	return entries
}

func (p *LogsPublisher) put(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff
	recreated := false

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.group),
			LogStreamName: aws.String(p.stream),
			LogEvents:     events,
		})
		if err == nil {
			return nil
		}
		lastErr = err

		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) && p.autoCreate && !recreated {
			recreated = true
			if cerr := p.ensureLogGroupAndStream(ctx); cerr != nil {
				return fmt.Errorf("log stream %s/%s disappeared: %w", p.group, p.stream, cerr)
			}
			continue
		}

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("PutLogEvents failed after %d attempts: %w", maxRetries, lastErr)
}

// splitLogBatches keeps every batch within the PutLogEvents count and size limits.
func splitLogBatches(events []types.InputLogEvent) [][]types.InputLogEvent {
	var batches [][]types.InputLogEvent
	start, size := 0, 0
	for i, event := range events {
		eventSize := len(aws.ToString(event.Message)) + perEventOverhead
		if i > start && (i-start >= maxEventsPerPut || size+eventSize > maxBytesPerPut) {
			batches = append(batches, events[start:i])
			start, size = i, 0
		}
		size += eventSize
	}
	if start < len(events) {
		batches = append(batches, events[start:])
	}
	return batches
}

// toLogEvent renders entry as one JSON line.
func toLogEvent(entry port.LogEntry) (types.InputLogEvent, error) {
	line := struct {
		Level   port.LogLevel          `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{
		Level:   entry.Level,
		Message: entry.Message,
		Fields:  entry.Fields,
	}

	raw, err := json.Marshal(line)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(raw)
	if len(message) > maxEventBytes {
		message = message[:maxEventBytes-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var exists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.group),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.group),
		LogStreamName: aws.String(p.stream),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}
	return nil
}
