package devicesim

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/vmorsell/microrail-remote/internal/status"
	"github.com/vmorsell/microrail-remote/pkg/model"
	"go.uber.org/zap"
)

const (
	Subprotocol         = "arduino"
	DefaultTickInterval = 100 * time.Millisecond

	readBufferSize  = 1024
	writeBufferSize = 1024
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 1024
	sendBufferSize  = 64
)

type client struct {
	conn *websocket.Conn
	id   string
	send chan []byte
}

type Server struct {
	logger       *zap.Logger
	device       *Device
	tickInterval time.Duration
	upgrader     websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*client]struct{}
}

func NewServer(logger *zap.Logger, device *Device, tickInterval time.Duration) *Server {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Server{
		logger:       logger,
		device:       device,
		tickInterval: tickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			Subprotocols:    []string{Subprotocol},
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleWebSocket)
	return r
}

// Run drives the motion control loop until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.device.Tick() {
				s.broadcastStatus()
			}
		}
	}
}

func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.device.Status()); err != nil {
		s.logger.Error("failed to write status", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !requestsSubprotocol(r) {
		http.Error(w, "subprotocol "+Subprotocol+" required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		id:   uuid.NewString()[:8],
		send: make(chan []byte, sendBufferSize),
	}
	s.register(c)

	go s.writePump(c)
	s.readPump(c)
}

func requestsSubprotocol(r *http.Request) bool {
	for _, p := range websocket.Subprotocols(r) {
		if p == Subprotocol {
			return true
		}
	}
	return false
}

// register queues the current status for c before it starts receiving
// broadcasts.
func (s *Server) register(c *client) {
	if payload, err := status.Encode(s.device.Status()); err == nil {
		c.send <- payload
	}

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Info("client connected", zap.String("client", c.id), zap.Int("clients", count))
}

func (s *Server) unregister(c *client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Info("client disconnected", zap.String("client", c.id), zap.Int("clients", count))
}

func (s *Server) broadcastStatus() {
	payload, err := status.Encode(s.device.Status())
	if err != nil {
		s.logger.Error("failed to encode status", zap.Error(err))
		return
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			s.logger.Warn("dropping slow client", zap.String("client", c.id))
			close(c.send)
			delete(s.clients, c)
		}
	}
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		text := string(message)
		s.logger.Debug("received text", zap.String("client", c.id), zap.String("text", text))
		if !strings.HasPrefix(text, "#") {
			continue
		}

		s.device.Handle(model.Command(text))
		s.broadcastStatus()
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
