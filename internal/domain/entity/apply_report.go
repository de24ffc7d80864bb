package entity

import (
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// AppliedStatusSuccess - статус успешно примененного действия
const AppliedStatusSuccess = "success"

// AppliedChange - примененное действие
type AppliedChange struct {
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// SkippedChange - действие, отложенное до ручного подтверждения
type SkippedChange struct {
	Action string                  `json:"action"`
	Impact valueobject.ImpactLevel `json:"impact"`
	Reason string                  `json:"reason"`
}

// ChangeError - действие, применение которого завершилось ошибкой
type ChangeError struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// ApplyReport - итог применения действий. Только добавление записей.
type ApplyReport struct {
	AppliedChanges []AppliedChange `json:"applied_changes"`
	SkippedChanges []SkippedChange `json:"skipped_changes"`
	Errors         []ChangeError   `json:"errors"`
}

// NewApplyReport создает пустой отчет (пустые списки сериализуются как [])
func NewApplyReport() *ApplyReport {
	return &ApplyReport{
		AppliedChanges: []AppliedChange{},
		SkippedChanges: []SkippedChange{},
		Errors:         []ChangeError{},
	}
}

// RecordApplied добавляет успешно примененное действие
func (r *ApplyReport) RecordApplied(action string, at time.Time) {
	r.AppliedChanges = append(r.AppliedChanges, AppliedChange{
		Action:    action,
		Status:    AppliedStatusSuccess,
		Timestamp: at.UTC(),
	})
}

// RecordSkipped добавляет пропущенное действие
func (r *ApplyReport) RecordSkipped(action string, impact valueobject.ImpactLevel, reason string) {
	r.SkippedChanges = append(r.SkippedChanges, SkippedChange{
		Action: action,
		Impact: impact,
		Reason: reason,
	})
}

// RecordError добавляет действие, завершившееся ошибкой
func (r *ApplyReport) RecordError(action string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	r.Errors = append(r.Errors, ChangeError{Action: action, Error: message})
}

// Total возвращает общее количество обработанных действий
func (r *ApplyReport) Total() int {
	return len(r.AppliedChanges) + len(r.SkippedChanges) + len(r.Errors)
}
