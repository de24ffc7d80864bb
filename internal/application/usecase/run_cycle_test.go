package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/service"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/persistence/file"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

type cycleFixture struct {
	backend   *mockMetricsBackend
	client    *mockModelClient
	executor  *mockExecutor
	store     port.ResultStore
	history   *mockHistory
	events    *mockEventPublisher
	telemetry *mockTelemetry
	notifier  *mockNotifier
	archive   *mockArchive
	cache     *mockCache
	progress  *recordingProgress
}

func newCycleFixture(reply string, replyErr error) *cycleFixture {
	return &cycleFixture{
		backend:   &mockMetricsBackend{},
		client:    &mockModelClient{reply: reply, err: replyErr},
		executor:  &mockExecutor{},
		store:     &memoryResultStore{},
		history:   &mockHistory{},
		events:    &mockEventPublisher{},
		telemetry: &mockTelemetry{},
		notifier:  &mockNotifier{},
		archive:   &mockArchive{},
		cache:     &mockCache{},
		progress:  &recordingProgress{},
	}
}

func (f *cycleFixture) useCase() *RunCycleUseCase {
	log := logger.New("error")
	collector := NewCollectMetricsUseCase(
		f.backend,
		&mockCostSource{snapshot: entity.CostSnapshot{DailyCost: 45.67, MonthlyProjection: 1370.10, TopServices: []string{"EC2", "RDS", "ALB"}, Source: "static"}},
		service.NewMetricCatalog(service.DefaultPeriod, nil),
		service.NewQueryValidator(),
		service.NewMetricSummarizer(),
		log,
	)
	engine := NewGenerateRecommendationUseCase(f.client, service.NewPromptBuilder(), 0, log)
	applier := NewApplyActionsUseCase(f.executor, service.NewApplyPolicy(), nil, log)

	return NewRunCycleUseCase(RunCycleDeps{
		Collector: collector,
		Engine:    engine,
		Applier:   applier,
		Store:     f.store,
		History:   f.history,
		Archive:   f.archive,
		Cache:     f.cache,
		Events:    f.events,
		Telemetry: f.telemetry,
		Notifier:  f.notifier,
		Progress:  f.progress,
	}, RunCycleConfig{}, log)
}

func TestRunCycleUseCase_ResizeDBReply(t *testing.T) {
	f := newCycleFixture(`{"analysis_summary":"ok","priority_actions":[{"action":"resize db","impact":"alto"}]}`, nil)

	result, err := f.useCase().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Results == nil {
		t.Fatalf("expected apply report")
	}
	if len(result.Results.AppliedChanges) != 1 || result.Results.AppliedChanges[0].Action != "resize db" {
		t.Fatalf("expected exactly one applied action, got %+v", result.Results.AppliedChanges)
	}
	if len(result.Results.SkippedChanges) != 0 || len(result.Results.Errors) != 0 {
		t.Fatalf("expected no skipped or errored actions, got %+v", result.Results)
	}
	if result.Status != valueobject.CycleComplete {
		t.Fatalf("expected complete status, got %s", result.Status)
	}

	if len(f.history.saved) != 1 || len(f.archive.keys) != 1 {
		t.Fatalf("expected history and archive sinks to run")
	}
	if len(f.events.types) != 1 || f.events.types[0] != dto.CycleEventCompleted {
		t.Fatalf("unexpected events: %v", f.events.types)
	}
	if len(f.telemetry.points) != 5 {
		t.Fatalf("expected 5 telemetry points, got %d", len(f.telemetry.points))
	}
	if f.cache.latest == nil || f.cache.latest.ID != result.ID {
		t.Fatalf("expected latest cycle to be cached")
	}
	if len(f.notifier.events) != 2 || f.notifier.events[1].Type != dto.CycleEventCompleted {
		t.Fatalf("unexpected notifications: %+v", f.notifier.events)
	}
}

func TestRunCycleUseCase_EngineErrorSkipsApply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		replyErr error
	}{
		{name: "invoke error", replyErr: errors.New("ThrottlingException")},
		{name: "non-json reply", reply: "I recommend resizing the database."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newCycleFixture(tc.reply, tc.replyErr)

			result, err := f.useCase().Execute(context.Background())
			if err != nil {
				t.Fatalf("engine errors must not fail the cycle, got %v", err)
			}

			if len(f.executor.executed) != 0 {
				t.Fatalf("applier must not be invoked, executed %v", f.executor.executed)
			}
			if result.Status != valueobject.CycleFailed || result.Results != nil || result.Analysis != nil {
				t.Fatalf("unexpected failed result: %+v", result)
			}
			if result.Error == "" {
				t.Fatalf("expected error message")
			}

			data, _ := json.Marshal(result)
			if strings.Contains(string(data), `"results"`) {
				t.Fatalf("results must be absent: %s", data)
			}
			if len(f.store.(*memoryResultStore).saved) != 1 {
				t.Fatalf("failed cycle must still be persisted")
			}
			if len(f.events.types) != 1 || f.events.types[0] != dto.CycleEventFailed {
				t.Fatalf("unexpected events: %v", f.events.types)
			}
		})
	}
}

func TestRunCycleUseCase_PrimaryWriteFailure(t *testing.T) {
	f := newCycleFixture(`{"analysis_summary":"ok"}`, nil)
	f.store = &memoryResultStore{err: errors.New("disk full")}

	result, err := f.useCase().Execute(context.Background())
	if err == nil {
		t.Fatalf("expected error on primary write failure")
	}
	if result == nil {
		t.Fatalf("expected in-memory result alongside the error")
	}
	if len(f.history.saved) != 0 {
		t.Fatalf("secondary sinks must not run after a failed primary write")
	}
}

func TestRunCycleUseCase_SecondarySinkFailuresAreIgnored(t *testing.T) {
	f := newCycleFixture(`{"analysis_summary":"ok","priority_actions":[{"action":"a","impact":"bajo"}]}`, nil)
	f.history.err = errors.New("db down")
	f.archive.err = errors.New("s3 down")
	f.events.err = errors.New("nats down")

	result, err := f.useCase().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != valueobject.CycleComplete {
		t.Fatalf("sink failures must not change status, got %s", result.Status)
	}
}

func TestRunCycleUseCase_DegradedMetricsGivePartialStatus(t *testing.T) {
	f := newCycleFixture(`{"analysis_summary":"ok"}`, nil)
	f.backend.errAt = map[string]error{"AWS/RDS": errors.New("denied")}

	result, err := f.useCase().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != valueobject.CyclePartial {
		t.Fatalf("expected partial status, got %s", result.Status)
	}
}

func TestRunCycleUseCase_FileReflectsOnlyLatestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimization_results.json")
	store := file.NewResultStore(path, logger.New("error"))

	first := newCycleFixture(`{"analysis_summary":"first","priority_actions":[{"action":"resize db","impact":"alto"}]}`, nil)
	first.store = store
	if _, err := first.useCase().Execute(context.Background()); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	second := newCycleFixture(`{"analysis_summary":"second"}`, nil)
	second.store = store
	latest, err := second.useCase().Execute(context.Background())
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	body := string(data)
	if strings.Contains(body, "first") || strings.Contains(body, "resize db") {
		t.Fatalf("file still contains data from the first run")
	}
	if !strings.Contains(body, latest.ID) {
		t.Fatalf("file does not contain the second run id")
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
	for _, key := range []string{"metrics", "analysis", "results"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %s in result file", key)
		}
	}
}

func TestArchiveKey(t *testing.T) {
	result := &entity.CycleResult{ID: "abc", StartedAt: time.Date(2026, 2, 7, 12, 34, 56, 0, time.UTC)}

	if got := ArchiveKey("cycles", result); got != "cycles/2026/02/07/20260207T123456Z_abc.json" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestRunCycleUseCase_ReportsCountsBeforeSavedPath(t *testing.T) {
	f := newCycleFixture(`{"analysis_summary":"ok","priority_actions":[{"action":"resize db","impact":"alto"}]}`, nil)

	result, err := f.useCase().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"finished:" + result.Status.String(), "saved:memory://latest"}
	if len(f.progress.steps) != len(want) {
		t.Fatalf("expected steps %v, got %v", want, f.progress.steps)
	}
	for i := range want {
		if f.progress.steps[i] != want[i] {
			t.Fatalf("expected steps %v, got %v", want, f.progress.steps)
		}
	}
}
