package service

import "github.com/dreschagin/infra-optimizer/internal/domain/entity"

// ManualApprovalReason - причина пропуска действий без высокого влияния
const ManualApprovalReason = "non-critical impact - requires manual approval"

// ApplyDecision - решение политики по одному действию
type ApplyDecision struct {
	Apply  bool
	Reason string
}

// ApplyPolicy решает, применять ли действие автоматически (Domain Service).
// Автоматически применяются только действия с меткой ровно "alto".
type ApplyPolicy struct{}

// NewApplyPolicy создает новый ApplyPolicy
func NewApplyPolicy() *ApplyPolicy {
	return &ApplyPolicy{}
}

// Decide возвращает решение по действию
func (p *ApplyPolicy) Decide(action entity.PriorityAction) ApplyDecision {
	if action.Impact.IsHigh() {
		return ApplyDecision{Apply: true}
	}
	return ApplyDecision{Apply: false, Reason: ManualApprovalReason}
}
