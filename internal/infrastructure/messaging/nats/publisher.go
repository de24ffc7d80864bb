package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

const (
	// DefaultStream хранит события циклов оптимизации
	DefaultStream = "OPTIMIZER_CYCLES"
	// CycleSubjects покрывает все subjects циклов
	CycleSubjects = "optimizer.cycle.>"

	SubjectCycleCompleted = "optimizer.cycle.completed"
	SubjectCycleFailed    = "optimizer.cycle.failed"
)

var _ port.CycleEventPublisher = (*NATSPublisher)(nil)

// asyncPublisher - подмножество JetStreamContext, используемое publisher
type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// NATSPublisher публикует события циклов в JetStream
type NATSPublisher struct {
	nc     *nats.Conn
	js     asyncPublisher
	logger *logger.Logger
}

// NewNATSPublisher creates a new NATS publisher and ensures the cycle stream exists
func NewNATSPublisher(natsURL string, log *logger.Logger) (*NATSPublisher, error) {
	// Connect to NATS with retry
	nc, err := nats.Connect(natsURL,
		nats.Name("infra-optimizer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Get JetStream context
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js, DefaultStream, CycleSubjects); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("Connected to NATS", "url", natsURL, "stream", DefaultStream)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

func ensureStream(js nats.JetStreamManager, name, subjects string) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   []string{subjects},
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 10 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}

// subjectFor сопоставляет тип события с subject потока
func subjectFor(eventType string) (string, error) {
	switch eventType {
	case dto.CycleEventCompleted:
		return SubjectCycleCompleted, nil
	case dto.CycleEventFailed:
		return SubjectCycleFailed, nil
	default:
		return "", fmt.Errorf("event type %q is not published to NATS", eventType)
	}
}

// PublishCycleEvent отправляет событие асинхронно, подтверждение не ожидается
func (p *NATSPublisher) PublishCycleEvent(ctx context.Context, event *dto.CycleEventDTO) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event == nil {
		return errors.New("nil cycle event")
	}

	subject, err := subjectFor(event.Type)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.PublishAsync(subject, data, nats.MsgId(event.CycleID+"."+event.Type)); err != nil {
		p.logger.Error("Failed to publish cycle event", err, "subject", subject, "cycle_id", event.CycleID)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Cycle event published",
		"subject", subject,
		"cycle_id", event.CycleID,
		"size", len(data),
	)
	return nil
}

// Close drains and closes the NATS connection
func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
	}
	return nil
}
