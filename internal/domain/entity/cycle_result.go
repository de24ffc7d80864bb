package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// CycleResult - полный результат одного цикла оптимизации
type CycleResult struct {
	ID         string                  `json:"id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Status     valueobject.CycleStatus `json:"status"`
	Metrics    *MetricSet              `json:"metrics"`
	Analysis   *Recommendation         `json:"analysis,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Results    *ApplyReport            `json:"results,omitempty"`
}

// NewCycleResult создает результат цикла с новым идентификатором
func NewCycleResult(startedAt time.Time) *CycleResult {
	return &CycleResult{
		ID:        uuid.New().String(),
		StartedAt: startedAt.UTC(),
	}
}

// Complete фиксирует успешное завершение цикла и вычисляет статус
func (c *CycleResult) Complete(metrics *MetricSet, analysis *Recommendation, report *ApplyReport, finishedAt time.Time) {
	c.Metrics = metrics
	c.Analysis = analysis
	c.Results = report
	c.Error = ""
	c.FinishedAt = finishedAt.UTC()

	c.Status = valueobject.CycleComplete
	if (metrics != nil && metrics.IsDegraded()) || (report != nil && len(report.Errors) > 0) {
		c.Status = valueobject.CyclePartial
	}
}

// Fail фиксирует ошибку движка рекомендаций: анализ и отчет отсутствуют
func (c *CycleResult) Fail(metrics *MetricSet, err error, finishedAt time.Time) {
	c.Metrics = metrics
	c.Analysis = nil
	c.Results = nil
	c.FinishedAt = finishedAt.UTC()
	c.Status = valueobject.CycleFailed
	if err != nil {
		c.Error = err.Error()
	}
}

// Duration возвращает длительность цикла
func (c *CycleResult) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}

// Failed сообщает, что цикл завершился ошибкой движка
func (c *CycleResult) Failed() bool {
	return c.Status == valueobject.CycleFailed
}
