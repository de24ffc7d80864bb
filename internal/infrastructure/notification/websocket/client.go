package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// pingPeriod < pongWait
	pingPeriod = (pongWait * 9) / 10

	// Лента односторонняя: от клиента ждем только control frames
	maxMessageSize = 512

	sendBuffer = 32
)

// Conn - часть *websocket.Conn, которую использует клиент
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client - подписчик ленты событий циклов
type Client struct {
	id          string
	conn        Conn
	hub         *Hub
	send        chan Message
	connectedAt time.Time
	logger      *logger.Logger
}

// NewClient создает подписчика для установленного соединения
func NewClient(hub *Hub, conn Conn, logger *logger.Logger) *Client {
	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		hub:         hub,
		send:        make(chan Message, sendBuffer),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// ID возвращает идентификатор подписчика
func (c *Client) ID() string {
	return c.id
}

// Enqueue кладет сообщение в очередь без блокировки.
// Вызывать только до Register: после регистрации каналом владеет hub.
func (c *Client) Enqueue(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump держит соединение живым и ловит закрытие со стороны клиента.
// Входящие сообщения игнорируются.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.logger.Debug("Feed subscriber disconnected",
			"client_id", c.id,
			"connected_for", time.Since(c.connectedAt).Round(time.Second).String())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Feed subscriber read failed", "client_id", c.id, "error", err.Error())
			}
			return
		}
	}
}

// WritePump пересылает события из очереди и шлет ping.
// Завершается, когда hub закрывает очередь или запись не удалась.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed closed"))
				return
			}
			if err := c.write(msg); err != nil {
				c.logger.Warn("Feed write failed", "client_id", c.id, "type", msg.Type, "error", err.Error())
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(msg Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}
