package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/service"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// Этапы, на которых может упасть движок рекомендаций
const (
	EngineStagePrompt = "prompt"
	EngineStageInvoke = "invoke"
	EngineStageParse  = "parse"
)

// EngineError - ошибка движка рекомендаций. Цикл после нее пропускает применение.
type EngineError struct {
	Stage string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("recommendation %s failed: %v", e.Stage, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// GenerateRecommendationUseCase строит prompt, вызывает модель и разбирает ответ
type GenerateRecommendationUseCase struct {
	client    port.ModelClient
	prompts   *service.PromptBuilder
	maxTokens int
	logger    *logger.Logger
}

// NewGenerateRecommendationUseCase создает новый use case
func NewGenerateRecommendationUseCase(
	client port.ModelClient,
	prompts *service.PromptBuilder,
	maxTokens int,
	logger *logger.Logger,
) *GenerateRecommendationUseCase {
	if maxTokens <= 0 {
		maxTokens = port.DefaultMaxTokens
	}
	return &GenerateRecommendationUseCase{
		client:    client,
		prompts:   prompts,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Execute возвращает рекомендацию или *EngineError. Повторов нет.
func (uc *GenerateRecommendationUseCase) Execute(ctx context.Context, metrics *entity.MetricSet) (*entity.Recommendation, error) {
	prompt, err := uc.prompts.Build(metrics)
	if err != nil {
		return nil, &EngineError{Stage: EngineStagePrompt, Err: err}
	}

	uc.logger.Debug("Invoking model", "prompt_bytes", len(prompt), "max_tokens", uc.maxTokens)

	text, err := uc.client.Complete(ctx, port.CompletionRequest{
		Prompt:    prompt,
		MaxTokens: uc.maxTokens,
	})
	if err != nil {
		uc.logger.Error("Model invocation failed", err)
		return nil, &EngineError{Stage: EngineStageInvoke, Err: err}
	}

	rec, err := entity.ParseRecommendation([]byte(ExtractJSONDocument(text)))
	if err != nil {
		uc.logger.Error("Model reply is not a JSON object", err, "reply_bytes", len(text))
		return nil, &EngineError{Stage: EngineStageParse, Err: err}
	}

	uc.logger.Info("Recommendation received",
		"actions", len(rec.PriorityActions),
		"high_impact", rec.HighImpactCount())

	return rec, nil
}

// ExtractJSONDocument обрезает пробелы и снимает одну обрамляющую markdown-ограду ```
func ExtractJSONDocument(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	body := strings.TrimSuffix(trimmed, "```")
	// первая строка ограды может содержать язык: ```json
	newline := strings.IndexByte(body, '\n')
	if newline < 0 {
		return trimFenceLanguage(strings.TrimSpace(strings.TrimPrefix(body, "```")))
	}

	return strings.TrimSpace(body[newline+1:])
}

// trimFenceLanguage снимает тег языка однострочной ограды: ```json {...}```
func trimFenceLanguage(inline string) string {
	end := strings.IndexFunc(inline, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end <= 0 {
		return inline
	}
	rest := strings.TrimSpace(inline[end:])
	if strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
		return rest
	}
	return inline
}
