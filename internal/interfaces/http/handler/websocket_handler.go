package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/infra-optimizer/internal/application/dto"
	"github.com/dreschagin/infra-optimizer/internal/application/runner"
	wsInfra "github.com/dreschagin/infra-optimizer/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/middleware"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// SnapshotProvider отдает состояние runner для первого сообщения подписчику
type SnapshotProvider interface {
	Snapshot() runner.Snapshot
}

// WebSocketHandler подключает подписчиков к ленте событий циклов
type WebSocketHandler struct {
	hub        *wsInfra.Hub
	snapshots  SnapshotProvider
	origins    originPolicy
	authConfig middleware.AuthConfig
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

// NewWebSocketHandler создает handler. snapshots может быть nil.
func NewWebSocketHandler(
	hub *wsInfra.Hub,
	snapshots SnapshotProvider,
	allowedOrigins []string,
	authConfig middleware.AuthConfig,
	logger *logger.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:        hub,
		snapshots:  snapshots,
		origins:    newOriginPolicy(allowedOrigins),
		authConfig: authConfig,
		logger:     logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return h.origins.allows(r.Header.Get("Origin"))
		},
	}

	return h
}

// HandleConnection поднимает WebSocket и отправляет снимок последнего цикла
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if err := middleware.ValidateRequestAuth(r, h.authConfig); err != nil {
		h.logger.Warn("WebSocket unauthorized", "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		h.logger.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err.Error())
		return
	}

	client := wsInfra.NewClient(h.hub, conn, h.logger)
	if h.snapshots != nil {
		if event := dto.NewSnapshotEvent(h.snapshots.Snapshot().LastSummary, time.Now()); event != nil {
			client.Enqueue(wsInfra.Message{Type: event.Type, Data: event})
		}
	}
	h.hub.Register(client)

	h.logger.Info("Feed subscriber connected", "client_id", client.ID(), "remote_addr", r.RemoteAddr)

	go client.WritePump()
	go client.ReadPump()
}

// originPolicy - список разрешенных Origin вида scheme://host[:port]; "*" разрешает любой
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	policy := originPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			policy.any = true
		default:
			policy.allowed[strings.ToLower(origin)] = struct{}{}
		}
	}
	return policy
}

func (p originPolicy) allows(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	if p.any {
		return true
	}

	_, ok := p.allowed[strings.ToLower(parsed.Scheme+"://"+parsed.Host)]
	return ok
}
