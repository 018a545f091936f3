package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 64
)

// EventMessage is the envelope sent to WebSocket clients.
type EventMessage struct {
	Type      string     `json:"type"`
	Timestamp string     `json:"timestamp"`
	Event     core.Event `json:"event"`
}

// WebSocketServer streams domain events to connected clients. It
// subscribes to the event bus; delivery to a slow client drops rather than
// stalls.
type WebSocketServer struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte

	events chan core.Event
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebSocketServer creates a WebSocket server wired to bus.
func NewWebSocketServer(bus *core.Bus, logger *logging.Logger) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())

	s := &WebSocketServer{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]chan []byte),
		events:  make(chan core.Event, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
	bus.Subscribe(s.events)
	go s.broadcastLoop()
	return s
}

// Stop disconnects all clients and stops broadcasting.
func (s *WebSocketServer) Stop() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, send := range s.clients {
		close(send)
		_ = conn.Close()
		delete(s.clients, conn)
	}
}

// broadcastLoop fans bus events out to every connected client.
func (s *WebSocketServer) broadcastLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-s.events:
			msg := EventMessage{
				Type:      event.Kind(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Event:     event,
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("Failed to marshal event", "kind", event.Kind(), "error", err.Error())
				continue
			}

			s.mu.Lock()
			for _, send := range s.clients {
				select {
				case send <- data:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}

// handleWebSocket upgrades the connection and serves it until it closes.
func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	send := make(chan []byte, wsSendBuffer)
	s.mu.Lock()
	s.clients[conn] = send
	s.mu.Unlock()

	s.logger.Debug("WebSocket client connected", "remote", conn.RemoteAddr().String())

	go s.writeLoop(conn, send)
	s.readLoop(conn)
}

// writeLoop pushes queued messages to one client.
func (s *WebSocketServer) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for data := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop drains client frames until disconnect, then cleans up.
func (s *WebSocketServer) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		if send, ok := s.clients[conn]; ok {
			close(send)
			delete(s.clients, conn)
		}
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Debug("WebSocket client disconnected", "remote", conn.RemoteAddr().String())
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
