package port

import (
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// ProgressReporter выводит человекочитаемый прогресс цикла (Port)
type ProgressReporter interface {
	CycleStarted()
	CollectingMetrics()
	AnalyzingMetrics()
	RecommendationReady(rec *entity.Recommendation)
	RecommendationFailed(err error)
	ApplyingAction(action entity.PriorityAction)
	ApplyFinished(report *entity.ApplyReport)
	ResultSaved(location string)
	CycleFinished(result *entity.CycleResult)
}

// NopProgressReporter ничего не выводит
type NopProgressReporter struct{}

func (NopProgressReporter) CycleStarted()                              {}
func (NopProgressReporter) CollectingMetrics()                         {}
func (NopProgressReporter) AnalyzingMetrics()                          {}
func (NopProgressReporter) RecommendationReady(*entity.Recommendation) {}
func (NopProgressReporter) RecommendationFailed(error)                 {}
func (NopProgressReporter) ApplyingAction(entity.PriorityAction)       {}
func (NopProgressReporter) ApplyFinished(*entity.ApplyReport)          {}
func (NopProgressReporter) ResultSaved(string)                         {}
func (NopProgressReporter) CycleFinished(*entity.CycleResult)          {}
