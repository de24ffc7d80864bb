package port

import (
	"context"
	"time"
)

// LogLevel - уровень записи в терминах логгера приложения
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry - одна запись лога с полями key=value
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher дублирует записи логгера во внешнюю систему (CloudWatch Logs).
// Publish вызывается на каждой записи и не должен блокироваться на сети.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error
}
