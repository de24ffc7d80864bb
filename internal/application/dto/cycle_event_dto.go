package dto

import "time"

const (
	// CycleEventStarted публикуется в начале цикла
	CycleEventStarted = "cycle_started"
	// CycleEventCompleted публикуется после успешного цикла (complete или partial)
	CycleEventCompleted = "cycle_completed"
	// CycleEventFailed публикуется после ошибки движка рекомендаций
	CycleEventFailed = "cycle_failed"
	// CycleEventSnapshot отправляется новому подписчику: последний известный цикл
	CycleEventSnapshot = "cycle_snapshot"
)

// CycleEventDTO - событие цикла для WebSocket и брокера
type CycleEventDTO struct {
	Type      string           `json:"type"`
	CycleID   string           `json:"cycle_id"`
	Timestamp time.Time        `json:"timestamp"`
	Summary   *CycleSummaryDTO `json:"summary,omitempty"`
}

// NewSnapshotEvent строит событие-снимок. nil, если циклов еще не было.
func NewSnapshotEvent(summary *CycleSummaryDTO, at time.Time) *CycleEventDTO {
	if summary == nil {
		return nil
	}
	return &CycleEventDTO{
		Type:      CycleEventSnapshot,
		CycleID:   summary.ID,
		Timestamp: at.UTC(),
		Summary:   summary,
	}
}
