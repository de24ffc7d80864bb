package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

const promptTemplate = `Analyze these AWS infrastructure metrics and provide optimization recommendations.

Metrics:
%s

Respond with a single JSON object using exactly this structure:
{
  "analysis_summary": "summary of the analysis",
  "performance_issues": ["list of performance issues"],
  "cost_optimization": ["cost saving opportunities"],
  "scaling_recommendations": ["scaling recommendations"],
  "security_improvements": ["security improvements"],
  "priority_actions": [
    {
      "action": "description of the action",
      "impact": "alto/medio/bajo",
      "estimated_savings": "percentage or amount",
      "terraform_code": "terraform code that implements the action"
    }
  ]
}
`

// PromptBuilder рендерит MetricSet в запрос к модели (Domain Service).
// Одинаковый MetricSet всегда дает одинаковый prompt.
type PromptBuilder struct{}

// NewPromptBuilder создает новый PromptBuilder
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Build возвращает текст запроса
func (b *PromptBuilder) Build(metrics *entity.MetricSet) (string, error) {
	if metrics == nil {
		return "", errors.New("metrics cannot be nil")
	}

	rendered, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render metrics: %w", err)
	}

	return fmt.Sprintf(promptTemplate, rendered), nil
}
