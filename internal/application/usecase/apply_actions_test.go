package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/service"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

func TestApplyActionsUseCase_PartitionsInOrder(t *testing.T) {
	executor := &mockExecutor{errAt: map[string]error{"rotate keys": errors.New("context canceled")}}
	uc := NewApplyActionsUseCase(executor, service.NewApplyPolicy(), nil, logger.New("error"))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	uc.now = func() time.Time { return fixed }

	rec := &entity.Recommendation{PriorityActions: []entity.PriorityAction{
		{Action: "resize db", Impact: "alto"},
		{Action: "tune alb", Impact: "medio"},
		{Action: "rotate keys", Impact: "alto"},
		{Action: "shrink disks", Impact: "Alto"},
		{Action: "add replica", Impact: "alto"},
		{Action: "no label"},
	}}

	report := uc.Execute(context.Background(), rec)

	if report.Total() != len(rec.PriorityActions) {
		t.Fatalf("expected %d actions in report, got %d", len(rec.PriorityActions), report.Total())
	}

	if len(report.AppliedChanges) != 2 ||
		report.AppliedChanges[0].Action != "resize db" ||
		report.AppliedChanges[1].Action != "add replica" {
		t.Fatalf("unexpected applied: %+v", report.AppliedChanges)
	}
	for _, applied := range report.AppliedChanges {
		if applied.Status != "success" || applied.Timestamp.Location() != time.UTC {
			t.Fatalf("unexpected applied entry: %+v", applied)
		}
	}

	if len(report.SkippedChanges) != 3 {
		t.Fatalf("expected 3 skipped, got %+v", report.SkippedChanges)
	}
	wantSkipped := []string{"tune alb", "shrink disks", "no label"}
	for i, skipped := range report.SkippedChanges {
		if skipped.Action != wantSkipped[i] {
			t.Fatalf("skipped %d: expected %s, got %s", i, wantSkipped[i], skipped.Action)
		}
		if skipped.Reason != service.ManualApprovalReason {
			t.Fatalf("unexpected reason: %q", skipped.Reason)
		}
	}
	if report.SkippedChanges[1].Impact != valueobject.ImpactLevel("Alto") {
		t.Fatalf("expected original impact label to be kept")
	}

	if len(report.Errors) != 1 || report.Errors[0].Action != "rotate keys" || report.Errors[0].Error != "context canceled" {
		t.Fatalf("unexpected errors: %+v", report.Errors)
	}

	wantExecuted := []string{"resize db", "rotate keys", "add replica"}
	if len(executor.executed) != len(wantExecuted) {
		t.Fatalf("expected executor calls %v, got %v", wantExecuted, executor.executed)
	}
}

func TestApplyActionsUseCase_EmptyInputs(t *testing.T) {
	executor := &mockExecutor{}
	uc := NewApplyActionsUseCase(executor, service.NewApplyPolicy(), nil, logger.New("error"))

	for _, rec := range []*entity.Recommendation{nil, {}} {
		report := uc.Execute(context.Background(), rec)
		if report.Total() != 0 {
			t.Fatalf("expected empty report, got %+v", report)
		}
	}
	if len(executor.executed) != 0 {
		t.Fatalf("executor must not be called")
	}
}
