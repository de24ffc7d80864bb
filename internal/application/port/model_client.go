package port

import "context"

// DefaultMaxTokens - лимит токенов ответа модели по умолчанию
const DefaultMaxTokens = 3000

// CompletionRequest - запрос к генеративной модели
type CompletionRequest struct {
	Prompt    string
	MaxTokens int
}

// ModelClient определяет интерфейс генеративной модели (Port)
// Реализация будет в Infrastructure слое (Bedrock)
type ModelClient interface {
	// Complete отправляет prompt и возвращает текст ответа
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
