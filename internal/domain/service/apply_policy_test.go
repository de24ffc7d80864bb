package service

import (
	"testing"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

func TestApplyPolicy_Decide(t *testing.T) {
	policy := NewApplyPolicy()

	tests := []struct {
		impact    valueobject.ImpactLevel
		wantApply bool
	}{
		{impact: "alto", wantApply: true},
		{impact: "Alto", wantApply: false},
		{impact: "ALTO", wantApply: false},
		{impact: " alto", wantApply: false},
		{impact: "medio", wantApply: false},
		{impact: "bajo", wantApply: false},
		{impact: "", wantApply: false},
		{impact: "critical", wantApply: false},
	}

	for _, tc := range tests {
		t.Run(string(tc.impact), func(t *testing.T) {
			decision := policy.Decide(entity.PriorityAction{Action: "x", Impact: tc.impact})
			if decision.Apply != tc.wantApply {
				t.Fatalf("impact %q: expected apply=%v", tc.impact, tc.wantApply)
			}
			if !decision.Apply && decision.Reason != ManualApprovalReason {
				t.Fatalf("unexpected reason: %q", decision.Reason)
			}
		})
	}
}
