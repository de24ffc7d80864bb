package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

const broadcastBuffer = 64

// Message - кадр, который получает подписчик.
// Seq растет на каждое событие hub, пропуск номера означает потерянное событие.
type Message struct {
	Type string      `json:"type"`
	Seq  uint64      `json:"seq,omitempty"`
	Data interface{} `json:"data"`
}

// Hub рассылает события циклов подключенным клиентам.
// Картой clients владеет goroutine Run; mu нужен только для чтения снаружи.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	seq     uint64
	evicted int

	broadcast  chan *dto.CycleEventDTO
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *logger.Logger
}

var _ port.NotificationService = (*Hub)(nil)

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *dto.CycleEventDTO, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает клиентов до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			n := h.dropAll()
			h.logger.Info("WebSocket hub stopped", "disconnected", n)
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c, "client left")
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Subscriber connected", "client_id", c.ID(), "subscribers", total)
}

func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c.ID()]
	if ok {
		delete(h.clients, c.ID())
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("Subscriber disconnected", "client_id", c.ID(), "reason", reason, "subscribers", total)
	}
}

// deliver не ждет медленных клиентов: клиент с полной очередью отключается
func (h *Hub) deliver(event *dto.CycleEventDTO) {
	h.mu.Lock()
	h.seq++
	msg := Message{Type: event.Type, Seq: h.seq, Data: event}
	var slow []string
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, id)
			h.evicted++
			slow = append(slow, id)
		}
	}
	h.mu.Unlock()

	for _, id := range slow {
		h.logger.Warn("Slow subscriber disconnected", "client_id", id, "event", event.Type)
	}
	h.logger.Debug("Cycle event delivered", "type", event.Type, "cycle_id", event.CycleID, "seq", msg.Seq)
}

func (h *Hub) dropAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.clients)
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	return n
}

// Register передает клиента hub; после остановки hub клиент сразу закрывается
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast ставит событие в очередь рассылки без блокировки
func (h *Hub) Broadcast(event *dto.CycleEventDTO) {
	if event == nil {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast queue full, event dropped", "type", event.Type, "cycle_id", event.CycleID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Evicted - число клиентов, отключенных из-за переполненной очереди
func (h *Hub) Evicted() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.evicted
}
