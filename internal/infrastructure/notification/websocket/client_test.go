package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

type fakeConn struct {
	mu       sync.Mutex
	written  []interface{}
	controls []int
	closed   bool
	readErr  error
	writeErr error
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, f.readErr }

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeConn) WriteMessage(messageType int, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, messageType)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestClient_WritePumpDrainsQueueThenCloses(t *testing.T) {
	conn := &fakeConn{}
	client := NewClient(NewHub(logger.New("error")), conn, logger.New("error"))

	event := dto.NewSnapshotEvent(&dto.CycleSummaryDTO{ID: "c-1", Status: "complete"}, time.Now())
	if !client.Enqueue(Message{Type: event.Type, Data: event}) {
		t.Fatalf("Enqueue() = false on empty queue")
	}
	close(client.send)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("WritePump did not return after queue close")
	}

	if len(conn.written) != 1 {
		t.Fatalf("written = %d messages, want 1", len(conn.written))
	}
	msg := conn.written[0].(Message)
	if msg.Type != dto.CycleEventSnapshot {
		t.Errorf("type = %q, want %q", msg.Type, dto.CycleEventSnapshot)
	}
	if len(conn.controls) != 1 || conn.controls[0] != websocket.CloseMessage {
		t.Errorf("controls = %v, want single close frame", conn.controls)
	}
	if !conn.closed {
		t.Errorf("connection must be closed")
	}
}

func TestClient_WritePumpStopsOnWriteError(t *testing.T) {
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	client := NewClient(NewHub(logger.New("error")), conn, logger.New("error"))
	client.Enqueue(Message{Type: dto.CycleEventCompleted})

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("WritePump did not stop on write error")
	}
	if !conn.closed {
		t.Errorf("connection must be closed")
	}
}

func TestClient_EnqueueFullQueue(t *testing.T) {
	client := NewClient(NewHub(logger.New("error")), &fakeConn{}, logger.New("error"))
	for i := 0; i < sendBuffer; i++ {
		if !client.Enqueue(Message{Type: dto.CycleEventStarted}) {
			t.Fatalf("Enqueue() = false at %d", i)
		}
	}
	if client.Enqueue(Message{Type: dto.CycleEventStarted}) {
		t.Fatalf("Enqueue() must report a full queue")
	}
}

func TestClient_ReadPumpUnregistersOnClose(t *testing.T) {
	log := logger.New("error")
	hub := NewHub(log)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// минимальный цикл hub без контекста
		for {
			select {
			case c := <-hub.unregister:
				close(c.send)
			case <-stop:
				return
			}
		}
	}()

	conn := &fakeConn{readErr: &websocket.CloseError{Code: websocket.CloseNormalClosure}}
	client := NewClient(hub, conn, log)
	client.ReadPump()

	if !conn.closed {
		t.Errorf("connection must be closed")
	}
	if _, ok := <-client.send; ok {
		t.Errorf("client must be unregistered")
	}
}
