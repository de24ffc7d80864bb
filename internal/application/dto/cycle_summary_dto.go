package dto

import (
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// CycleSummaryDTO представляет краткую сводку цикла для API и событий
type CycleSummaryDTO struct {
	ID                 string    `json:"id"`
	Status             string    `json:"status"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	DurationMs         int64     `json:"duration_ms"`
	AnalysisSummary    string    `json:"analysis_summary,omitempty"`
	ActionsApplied     int       `json:"actions_applied"`
	ActionsSkipped     int       `json:"actions_skipped"`
	ActionErrors       int       `json:"action_errors"`
	DegradedCategories []string  `json:"degraded_categories,omitempty"`
	Error              string    `json:"error,omitempty"`
}

// FromCycleResult конвертирует результат цикла в сводку
func FromCycleResult(result *entity.CycleResult) *CycleSummaryDTO {
	if result == nil {
		return nil
	}

	summary := &CycleSummaryDTO{
		ID:         result.ID,
		Status:     result.Status.String(),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		DurationMs: result.Duration().Milliseconds(),
		Error:      result.Error,
	}

	if result.Analysis != nil {
		summary.AnalysisSummary = result.Analysis.AnalysisSummary
	}

	if result.Results != nil {
		summary.ActionsApplied = len(result.Results.AppliedChanges)
		summary.ActionsSkipped = len(result.Results.SkippedChanges)
		summary.ActionErrors = len(result.Results.Errors)
	}

	if result.Metrics != nil {
		for _, category := range result.Metrics.DegradedCategories() {
			summary.DegradedCategories = append(summary.DegradedCategories, category.String())
		}
	}

	return summary
}

// ToCycleSummaryDTOs конвертирует слайс результатов в слайс сводок
func ToCycleSummaryDTOs(results []*entity.CycleResult) []*CycleSummaryDTO {
	dtos := make([]*CycleSummaryDTO, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		dtos = append(dtos, FromCycleResult(r))
	}
	return dtos
}
