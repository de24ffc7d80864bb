package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
)

// ErrRecommendationNotObject возвращается, когда документ модели не является JSON-объектом
var ErrRecommendationNotObject = errors.New("recommendation must be a JSON object")

// PriorityAction - приоритетное действие из рекомендации модели
type PriorityAction struct {
	Action           string                  `json:"action"`
	Impact           valueobject.ImpactLevel `json:"impact"`
	EstimatedSavings string                  `json:"estimated_savings,omitempty"`
	TerraformCode    string                  `json:"terraform_code,omitempty"`
}

// Recommendation - структурированный ответ модели.
// Поля только для чтения после ParseRecommendation.
type Recommendation struct {
	AnalysisSummary        string           `json:"analysis_summary"`
	PerformanceIssues      []string         `json:"performance_issues"`
	CostOptimization       []string         `json:"cost_optimization"`
	ScalingRecommendations []string         `json:"scaling_recommendations"`
	SecurityImprovements   []string         `json:"security_improvements"`
	PriorityActions        []PriorityAction `json:"priority_actions"`

	raw json.RawMessage
}

// ParseRecommendation разбирает JSON-объект модели.
// Отсутствующие поля и поля неверного типа получают нулевые значения.
func ParseRecommendation(data []byte) (*Recommendation, error) {
	trimmed := bytes.TrimSpace(data)

	var fields map[string]json.RawMessage
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrRecommendationNotObject
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}

	rec := &Recommendation{
		AnalysisSummary:        lenientString(fields["analysis_summary"]),
		PerformanceIssues:      lenientStrings(fields["performance_issues"]),
		CostOptimization:       lenientStrings(fields["cost_optimization"]),
		ScalingRecommendations: lenientStrings(fields["scaling_recommendations"]),
		SecurityImprovements:   lenientStrings(fields["security_improvements"]),
		PriorityActions:        lenientActions(fields["priority_actions"]),
		raw:                    append(json.RawMessage(nil), trimmed...),
	}

	return rec, nil
}

// HighImpactCount возвращает количество действий с меткой "alto"
func (r *Recommendation) HighImpactCount() int {
	count := 0
	for _, action := range r.PriorityActions {
		if action.Impact.IsHigh() {
			count++
		}
	}
	return count
}

type recommendationJSON struct {
	AnalysisSummary        string           `json:"analysis_summary"`
	PerformanceIssues      []string         `json:"performance_issues"`
	CostOptimization       []string         `json:"cost_optimization"`
	ScalingRecommendations []string         `json:"scaling_recommendations"`
	SecurityImprovements   []string         `json:"security_improvements"`
	PriorityActions        []PriorityAction `json:"priority_actions"`
}

// MarshalJSON отдает исходный документ модели как есть
func (r *Recommendation) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(recommendationJSON{
		AnalysisSummary:        r.AnalysisSummary,
		PerformanceIssues:      r.PerformanceIssues,
		CostOptimization:       r.CostOptimization,
		ScalingRecommendations: r.ScalingRecommendations,
		SecurityImprovements:   r.SecurityImprovements,
		PriorityActions:        r.PriorityActions,
	})
}

// UnmarshalJSON восстанавливает рекомендацию из сохраненного результата
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRecommendation(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func lenientString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	// числа и bool сохраняем как текст: "estimated_savings": 120
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	return trimmed
}

func lenientStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		result = append(result, strings.TrimSpace(string(item)))
	}
	return result
}

func lenientActions(raw json.RawMessage) []PriorityAction {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil
	}

	actions := make([]PriorityAction, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			// элемент не объект: действие без имени и метки, уйдет в skipped
			fields = nil
		}
		actions = append(actions, PriorityAction{
			Action:           lenientString(fields["action"]),
			Impact:           valueobject.ImpactLevel(lenientString(fields["impact"])),
			EstimatedSavings: lenientString(fields["estimated_savings"]),
			TerraformCode:    lenientString(fields["terraform_code"]),
		})
	}
	return actions
}
