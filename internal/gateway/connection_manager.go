package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quiesqui/server/internal/events"
)

// ConnectionManager owns the WebSocket connections and delivers events
// to them. It implements engine.EventSink.
type ConnectionManager struct {
	registry *Registry
	upgrader websocket.Upgrader
	config   ConnectionConfig

	mu    sync.RWMutex
	conns map[string]*Conn

	dispatcher *Dispatcher
}

// Conn represents one WebSocket connection to a client.
type Conn struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds transport tuning for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns defaults suitable for browser clients.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager over the registry.
func NewConnectionManager(config ConnectionConfig, registry *Registry) *ConnectionManager {
	return &ConnectionManager{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		conns:  make(map[string]*Conn),
	}
}

// SetDispatcher wires the intent dispatcher. Must be called before the
// manager accepts connections; split from the constructor because the
// engine and the manager reference each other.
func (cm *ConnectionManager) SetDispatcher(d *Dispatcher) {
	cm.dispatcher = d
}

// HandleConnection upgrades an HTTP request and starts the connection
// pumps.
func (cm *ConnectionManager) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	conn := &Conn{
		ID:          uuid.New().String(),
		Conn:        ws,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[conn.ID] = conn
	cm.mu.Unlock()

	go conn.writePump()
	go conn.readPump()

	log.Info().Str("conn_id", conn.ID).Msg("WebSocket connection established")
}

// unregister drops the connection and resolves its departure.
func (cm *ConnectionManager) unregister(conn *Conn) {
	cm.mu.Lock()
	if _, exists := cm.conns[conn.ID]; !exists {
		cm.mu.Unlock()
		return
	}
	delete(cm.conns, conn.ID)
	close(conn.Send)
	cm.mu.Unlock()

	// Implicit leave for whatever room the registry maps this
	// connection to, then drop both registry entries.
	cm.dispatcher.Disconnected(conn.ID)
	cm.registry.Forget(conn.ID)

	log.Info().Str("conn_id", conn.ID).Msg("connection unregistered")
}

// Send delivers an event to a single connection. Unknown connection ids
// are dropped silently; the recipient may have just disconnected.
func (cm *ConnectionManager) Send(connID string, ev *events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event")
		return
	}
	cm.mu.RLock()
	conn, ok := cm.conns[connID]
	cm.mu.RUnlock()
	if !ok {
		return
	}
	cm.deliver(conn, data)
}

// Broadcast delivers an event to every connection in a room.
func (cm *ConnectionManager) Broadcast(roomID string, ev *events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event")
		return
	}

	for _, connID := range cm.registry.ConnsInRoom(roomID) {
		cm.mu.RLock()
		conn, ok := cm.conns[connID]
		cm.mu.RUnlock()
		if ok {
			cm.deliver(conn, data)
		}
	}

	log.Debug().
		Str("event_type", string(ev.Type)).
		Str("room_id", roomID).
		Msg("event broadcast")
}

// deliver enqueues bytes for the write pump, closing the connection if
// its send buffer is full.
func (cm *ConnectionManager) deliver(conn *Conn, data []byte) {
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("conn_id", conn.ID).Msg("connection send buffer full, closing connection")
		conn.Conn.Close()
	}
}

// ConnectionCount reports how many connections are live.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns)
}

// writePump handles sending messages to the WebSocket connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("conn_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client intents until the connection drops, then lets
// the manager resolve the departure.
func (c *Conn) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("conn_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}
		c.Manager.dispatcher.Dispatch(c.ID, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// RegisterRoutes registers the WebSocket endpoint with an HTTP mux.
func (cm *ConnectionManager) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", cm.HandleConnection)
	mux.HandleFunc("/ws/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"total_connections":%d}`, cm.ConnectionCount())
	})
}
