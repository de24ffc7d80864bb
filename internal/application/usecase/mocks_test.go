package usecase

import (
	"context"
	"sync"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
)

type mockMetricsBackend struct {
	queries []port.MetricQuery
	points  map[string][]entity.Datapoint
	errAt   map[string]error
}

func (m *mockMetricsBackend) GetMetricStatistics(_ context.Context, query port.MetricQuery) ([]entity.Datapoint, error) {
	m.queries = append(m.queries, query)
	if err, ok := m.errAt[query.Namespace]; ok {
		return nil, err
	}
	return m.points[query.Namespace], nil
}

type mockCostSource struct {
	snapshot entity.CostSnapshot
	err      error
}

func (m *mockCostSource) GetCostSnapshot(_ context.Context) (entity.CostSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockCostSource) Name() string {
	return "mock"
}

type mockModelClient struct {
	reply    string
	err      error
	requests []port.CompletionRequest
}

func (m *mockModelClient) Complete(_ context.Context, req port.CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	return m.reply, m.err
}

type mockExecutor struct {
	executed []string
	errAt    map[string]error
}

func (m *mockExecutor) Execute(_ context.Context, action entity.PriorityAction) error {
	m.executed = append(m.executed, action.Action)
	if err, ok := m.errAt[action.Action]; ok {
		return err
	}
	return nil
}

type memoryResultStore struct {
	saved []*entity.CycleResult
	err   error
}

func (m *memoryResultStore) Save(_ context.Context, result *entity.CycleResult) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, result)
	return "memory://latest", nil
}

func (m *memoryResultStore) Load(_ context.Context) (*entity.CycleResult, error) {
	if len(m.saved) == 0 {
		return nil, repository.ErrCycleNotFound
	}
	return m.saved[len(m.saved)-1], nil
}

type mockHistory struct {
	saved  []*entity.CycleResult
	latest *entity.CycleResult
	err    error
}

func (m *mockHistory) Save(_ context.Context, result *entity.CycleResult) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, result)
	return nil
}

func (m *mockHistory) FindLatest(_ context.Context) (*entity.CycleResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.latest, nil
}

func (m *mockHistory) List(_ context.Context, limit int) ([]*entity.CycleResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.saved) {
		return m.saved[:limit], nil
	}
	return m.saved, nil
}

type mockEventPublisher struct {
	types []string
	err   error
}

func (m *mockEventPublisher) PublishCycleEvent(_ context.Context, event *dto.CycleEventDTO) error {
	m.types = append(m.types, event.Type)
	return m.err
}

type mockTelemetry struct {
	points []port.TelemetryPoint
}

func (m *mockTelemetry) PublishBatch(_ context.Context, points []port.TelemetryPoint) error {
	m.points = append(m.points, points...)
	return nil
}

func (m *mockTelemetry) PublishSingle(_ context.Context, point port.TelemetryPoint) error {
	m.points = append(m.points, point)
	return nil
}

func (m *mockTelemetry) Flush(_ context.Context) error {
	return nil
}

type mockNotifier struct {
	mu     sync.Mutex
	events []*dto.CycleEventDTO
}

func (m *mockNotifier) Broadcast(event *dto.CycleEventDTO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) ClientCount() int {
	return 1
}

type mockArchive struct {
	keys []string
	err  error
}

func (m *mockArchive) Archive(_ context.Context, cycle port.ArchivedCycle) (string, error) {
	key := cycle.Key
	m.keys = append(m.keys, key)
	if m.err != nil {
		return "", m.err
	}
	return "https://archive.example.com/" + key, nil
}

type mockCache struct {
	latest *entity.CycleResult
	sets   int
	err    error
}

func (m *mockCache) GetLatest(_ context.Context) (*entity.CycleResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.latest == nil {
		return nil, port.ErrCacheMiss
	}
	return m.latest, nil
}

func (m *mockCache) SetLatest(_ context.Context, result *entity.CycleResult) error {
	m.sets++
	m.latest = result
	return nil
}

type recordingProgress struct {
	port.NopProgressReporter
	steps []string
}

func (p *recordingProgress) ResultSaved(location string) {
	p.steps = append(p.steps, "saved:"+location)
}

func (p *recordingProgress) CycleFinished(result *entity.CycleResult) {
	p.steps = append(p.steps, "finished:"+result.Status.String())
}
