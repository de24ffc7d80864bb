package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// ErrCycleInProgress возвращается, если цикл уже выполняется
var ErrCycleInProgress = errors.New("optimization cycle already in progress")

// CycleExecutor выполняет один цикл оптимизации
type CycleExecutor interface {
	Execute(ctx context.Context) (*entity.CycleResult, error)
}

// Observer получает результат каждого завершенного запуска
type Observer interface {
	ObserveCycle(result *entity.CycleResult, err error)
}

// Snapshot - состояние runner для health и API
type Snapshot struct {
	StartedAt   time.Time            `json:"started_at"`
	LastRunAt   time.Time            `json:"last_run_at"`
	LastError   string               `json:"last_error,omitempty"`
	Running     bool                 `json:"running"`
	RunCount    int                  `json:"run_count"`
	LastSummary *dto.CycleSummaryDTO `json:"last_summary,omitempty"`
}

// Runner сериализует запуски циклов: одновременно выполняется не больше одного.
// Тикера нет, циклы запускаются только по запросу.
type Runner struct {
	cycle    CycleExecutor
	log      *logger.Logger
	timeout  time.Duration
	observer Observer

	runMu sync.Mutex

	mu         sync.RWMutex
	startedAt  time.Time
	running    bool
	runCount   int
	lastRunAt  time.Time
	lastError  string
	lastResult *entity.CycleResult
}

// NewRunner создает runner. timeout <= 0 отключает ограничение времени цикла.
func NewRunner(cycle CycleExecutor, log *logger.Logger, timeout time.Duration) *Runner {
	return &Runner{
		cycle:     cycle,
		log:       log,
		timeout:   timeout,
		startedAt: time.Now(),
	}
}

// SetObserver подключает наблюдателя (метрики Prometheus)
func (r *Runner) SetObserver(observer Observer) {
	r.observer = observer
}

// RunOnce выполняет цикл или возвращает ErrCycleInProgress
func (r *Runner) RunOnce(ctx context.Context) (*entity.CycleResult, error) {
	if !r.runMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer r.runMu.Unlock()

	r.setRunning(true)
	defer r.setRunning(false)

	cycleCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.cycle.Execute(cycleCtx)
	runAt := time.Now()

	if r.observer != nil {
		r.observer.ObserveCycle(result, err)
	}

	if err != nil {
		wrappedErr := fmt.Errorf("optimization cycle failed: %w", err)
		r.updateFailure(runAt, result, wrappedErr)
		r.log.Error("Optimization cycle failed", wrappedErr)
		return result, wrappedErr
	}

	r.updateSuccess(runAt, result)

	if result.Failed() {
		r.log.Warn("Optimization cycle completed without recommendation", "cycle_id", result.ID, "error", result.Error)
		return result, nil
	}

	r.log.Info("Optimization cycle completed",
		"cycle_id", result.ID,
		"status", result.Status.String(),
		"duration", result.Duration().String())

	return result, nil
}

// Snapshot возвращает копию состояния
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Snapshot{
		StartedAt:   r.startedAt,
		LastRunAt:   r.lastRunAt,
		LastError:   r.lastError,
		Running:     r.running,
		RunCount:    r.runCount,
		LastSummary: dto.FromCycleResult(r.lastResult),
	}
}

func (r *Runner) setRunning(running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = running
}

func (r *Runner) updateFailure(runAt time.Time, result *entity.CycleResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runCount++
	r.lastRunAt = runAt
	r.lastError = err.Error()
	if result != nil {
		r.lastResult = result
	}
}

func (r *Runner) updateSuccess(runAt time.Time, result *entity.CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runCount++
	r.lastRunAt = runAt
	r.lastError = ""
	r.lastResult = result
}
