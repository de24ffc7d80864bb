package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

// CycleDBModel представляет цикл оптимизации в БД.
// Колонки дублируют поля документа для фильтрации, полный результат хранится в JSONB.
type CycleDBModel struct {
	ID           string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	AppliedCount int
	SkippedCount int
	ErrorCount   int
	Document     []byte // JSON
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(result *entity.CycleResult) (*CycleDBModel, error) {
	if result == nil {
		return nil, fmt.Errorf("cycle result is nil")
	}

	document, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	model := &CycleDBModel{
		ID:         result.ID,
		Status:     result.Status.String(),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Document:   document,
	}
	if result.Results != nil {
		model.AppliedCount = len(result.Results.AppliedChanges)
		model.SkippedCount = len(result.Results.SkippedChanges)
		model.ErrorCount = len(result.Results.Errors)
	}

	return model, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *CycleDBModel) (*entity.CycleResult, error) {
	var result entity.CycleResult
	if err := json.Unmarshal(model.Document, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cycle %s: %w", model.ID, err)
	}
	return &result, nil
}

// ScanCycleRow сканирует строку БД в CycleDBModel
func ScanCycleRow(row interface {
	Scan(dest ...interface{}) error
}) (*CycleDBModel, error) {
	var model CycleDBModel

	err := row.Scan(
		&model.ID,
		&model.Status,
		&model.StartedAt,
		&model.FinishedAt,
		&model.AppliedCount,
		&model.SkippedCount,
		&model.ErrorCount,
		&model.Document,
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}
