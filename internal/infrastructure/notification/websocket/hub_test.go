package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func startHub(t *testing.T) (*Hub, func()) {
	t.Helper()
	hub := NewHub(logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	return hub, func() {
		cancel()
		<-done
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("message not delivered")
		return Message{}
	}
}

func TestHub_BroadcastToRegisteredClients(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	client := NewClient(hub, nil, logger.New("error"))
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Broadcast(&dto.CycleEventDTO{Type: dto.CycleEventStarted, CycleID: "abc"})
	hub.Broadcast(&dto.CycleEventDTO{Type: dto.CycleEventCompleted, CycleID: "abc"})

	first, second := receive(t, client), receive(t, client)
	if first.Type != dto.CycleEventStarted || second.Type != dto.CycleEventCompleted {
		t.Fatalf("unexpected order: %s, %s", first.Type, second.Type)
	}
	if second.Seq != first.Seq+1 {
		t.Fatalf("expected consecutive sequence numbers, got %d and %d", first.Seq, second.Seq)
	}
	if event, ok := second.Data.(*dto.CycleEventDTO); !ok || event.CycleID != "abc" {
		t.Fatalf("unexpected payload %+v", second.Data)
	}

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if _, ok := <-client.send; ok {
		t.Fatalf("expected send channel to be closed")
	}
}

func TestHub_EvictsSlowClient(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	log := logger.New("error")
	slow := NewClient(hub, nil, log)
	for i := 0; i < sendBuffer; i++ {
		slow.Enqueue(Message{Type: dto.CycleEventSnapshot})
	}
	fast := NewClient(hub, nil, log)
	hub.Register(slow)
	hub.Register(fast)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(&dto.CycleEventDTO{Type: dto.CycleEventCompleted, CycleID: "abc"})

	if msg := receive(t, fast); msg.Type != dto.CycleEventCompleted {
		t.Fatalf("fast client got %s", msg.Type)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 && hub.Evicted() == 1 })
}

func TestHub_BroadcastNilIsIgnored(t *testing.T) {
	hub := NewHub(logger.New("error"))
	hub.Broadcast(nil)
	if len(hub.broadcast) != 0 {
		t.Fatalf("nil event must not be queued")
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, stop := startHub(t)

	client := NewClient(hub, nil, logger.New("error"))
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	stop()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected clients to be removed on stop")
	}
	if _, ok := <-client.send; ok {
		t.Fatalf("expected send channel to be closed")
	}

	late := NewClient(hub, nil, logger.New("error"))
	hub.Register(late)
	if _, ok := <-late.send; ok {
		t.Fatalf("register after stop must close the client")
	}
}
