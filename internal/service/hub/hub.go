package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"PumpDump/internal/domain/models"
	drepo "PumpDump/internal/domain/repository"
	applogger "PumpDump/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Frame types pushed to subscribers.
const (
	FrameDisplay = "display"
	FrameChart   = "chart"
	FrameNotice  = "notice"
)

// Frame is the envelope of every WebSocket message.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Config holds WebSocket connection settings.
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     64,
		CheckOrigin:    func(r *http.Request) bool { return true },
	}
}

// Hub fans display, chart and notice frames out to WebSocket subscribers. It
// implements ChartRenderer and DisplaySurface; publishing never blocks, and a
// subscriber whose buffer is full is disconnected.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	metrics  drepo.Metrics
	log      *applogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	// latest frames replayed to new subscribers
	lastDisplay []byte
	lastChart   []byte
}

type client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
}

func New(cfg Config, metrics drepo.Metrics, log *applogger.Logger) *Hub {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = def.CheckOrigin
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		metrics: metrics,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

var (
	_ drepo.ChartRenderer  = (*Hub)(nil)
	_ drepo.DisplaySurface = (*Hub)(nil)
)

func (h *Hub) Render(_ context.Context, f models.ChartFrame) {
	if b, ok := h.encode(FrameChart, f); ok {
		h.mu.Lock()
		h.lastChart = b
		h.mu.Unlock()
		h.broadcast(b)
	}
}

func (h *Hub) Show(_ context.Context, d models.Display) {
	if b, ok := h.encode(FrameDisplay, d); ok {
		h.mu.Lock()
		h.lastDisplay = b
		h.mu.Unlock()
		h.broadcast(b)
	}
}

func (h *Hub) Notify(_ context.Context, n models.Notice) {
	if b, ok := h.encode(FrameNotice, n); ok {
		h.broadcast(b)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and subscribes the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	c := &client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, h.cfg.SendBuffer),
		connectedAt: time.Now(),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)

	h.log.Debug("subscriber connected",
		applogger.String("connection_id", c.id),
		applogger.String("remote", r.RemoteAddr),
	)
	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.metrics.RecordSubscribers(0)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	for _, b := range [][]byte{h.lastDisplay, h.lastChart} {
		if b == nil {
			continue
		}
		select {
		case c.send <- b:
		default:
		}
	}
	h.metrics.RecordSubscribers(len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.RecordSubscribers(len(h.clients))
}

func (h *Hub) broadcast(b []byte) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("subscriber send buffer full, disconnecting", applogger.String("connection_id", c.id))
		h.metrics.RecordError("hub_slow_subscriber")
		h.unregister(c)
	}
}

func (h *Hub) encode(typ string, data interface{}) ([]byte, bool) {
	b, err := json.Marshal(Frame{Type: typ, Data: data})
	if err != nil {
		h.metrics.RecordError("hub_encode")
		h.log.Error("encode frame", applogger.String("type", typ), applogger.Error(err))
		return nil, false
	}
	return b, true
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.unregister(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("write frame", applogger.String("connection_id", c.id), applogger.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the read deadline alive; clients do not send commands
// over the socket.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("unexpected websocket close", applogger.String("connection_id", c.id), applogger.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	}
}
