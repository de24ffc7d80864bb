package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{DEBUG: "DEBUG", INFO: "INFO", WARN: "WARN", ERROR: "ERROR"}

func (l Level) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// sink общий для логгера и всех его потомков из With
type sink struct {
	mu        sync.RWMutex
	publisher port.LogPublisher
}

type Logger struct {
	logger *log.Logger
	level  Level
	fields []interface{}
	sink   *sink
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter создает логгер, пишущий в произвольный writer
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", 0),
		level:  parseLevel(level),
		sink:   &sink{},
	}
}

// With возвращает логгер, добавляющий пары key=value к каждой записи
func (l *Logger) With(args ...interface{}) *Logger {
	child := *l
	child.fields = make([]interface{}, 0, len(l.fields)+len(args))
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, args...)
	return &child
}

// SetLogPublisher дублирует записи во внешний publisher (CloudWatch Logs).
// Действует и на потомков из With; nil отключает пересылку.
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.publisher = publisher
}

func parseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args)
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.log(ERROR, msg, args)
}

func (l *Logger) log(level Level, msg string, args []interface{}) {
	if level < l.level {
		return
	}

	kv := args
	if len(l.fields) > 0 {
		kv = make([]interface{}, 0, len(l.fields)+len(args))
		kv = append(kv, l.fields...)
		kv = append(kv, args...)
	}

	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level, msg)
	if len(kv) > 0 {
		b.WriteString(" |")
		for i := 0; i < len(kv); i += 2 {
			if i+1 < len(kv) {
				fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
			} else {
				fmt.Fprintf(&b, " !EXTRA=%v", kv[i])
			}
		}
	}

	l.logger.Println(b.String())
	l.forward(now, level, msg, kv)
}

func (l *Logger) forward(ts time.Time, level Level, msg string, kv []interface{}) {
	l.sink.mu.RLock()
	publisher := l.sink.publisher
	l.sink.mu.RUnlock()
	if publisher == nil {
		return
	}

	entry := port.LogEntry{
		Timestamp: ts,
		Level:     port.LogLevel(level.String()),
		Message:   msg,
	}
	if len(kv) > 1 {
		entry.Fields = make(map[string]interface{}, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			entry.Fields[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}

	// publisher буферизует, ошибка отправки не должна ломать логирование
	_ = publisher.Publish(context.Background(), entry)
}
