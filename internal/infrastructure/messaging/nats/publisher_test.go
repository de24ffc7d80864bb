package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

type fakeJetStream struct {
	subject string
	data    []byte
	opts    int
	err     error
}

func (f *fakeJetStream) PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error) {
	f.subject = subj
	f.data = data
	f.opts = len(opts)
	return nil, f.err
}

func TestNATSPublisher_PublishCycleEvent(t *testing.T) {
	tests := []struct {
		name        string
		eventType   string
		wantSubject string
	}{
		{name: "completed", eventType: dto.CycleEventCompleted, wantSubject: SubjectCycleCompleted},
		{name: "failed", eventType: dto.CycleEventFailed, wantSubject: SubjectCycleFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			js := &fakeJetStream{}
			p := &NATSPublisher{js: js, logger: logger.New("error")}

			event := &dto.CycleEventDTO{Type: tt.eventType, CycleID: "abc", Timestamp: time.Now()}
			if err := p.PublishCycleEvent(context.Background(), event); err != nil {
				t.Fatalf("PublishCycleEvent() error = %v", err)
			}

			if js.subject != tt.wantSubject {
				t.Fatalf("subject = %s, want %s", js.subject, tt.wantSubject)
			}
			if js.opts != 1 {
				t.Fatalf("expected a message id option")
			}
			var decoded dto.CycleEventDTO
			if err := json.Unmarshal(js.data, &decoded); err != nil || decoded.CycleID != "abc" {
				t.Fatalf("unexpected payload %s", js.data)
			}
		})
	}
}

func TestNATSPublisher_PublishCycleEventErrors(t *testing.T) {
	completed := &dto.CycleEventDTO{Type: dto.CycleEventCompleted, CycleID: "abc"}

	p := &NATSPublisher{js: &fakeJetStream{err: errors.New("no responders")}, logger: logger.New("error")}
	if err := p.PublishCycleEvent(context.Background(), completed); err == nil {
		t.Fatalf("expected publish error")
	}

	js := &fakeJetStream{}
	p = &NATSPublisher{js: js, logger: logger.New("error")}
	if err := p.PublishCycleEvent(context.Background(), &dto.CycleEventDTO{Type: dto.CycleEventStarted}); err == nil {
		t.Fatalf("expected error for unpublished event type")
	}
	if js.subject != "" {
		t.Fatalf("nothing should be published, got %s", js.subject)
	}
	if err := p.PublishCycleEvent(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.PublishCycleEvent(ctx, completed); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
