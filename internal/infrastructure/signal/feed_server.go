package signal

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	// the feed is read-only; browsers on any origin may watch it
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// FeedConfig tunes the live health feed
type FeedConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// FeedMessage is one frame on the feed. The first frame after connecting is a
// "hello" carrying the full report.
type FeedMessage struct {
	Type   string               `json:"type"`
	Event  *domain.HealthEvent  `json:"event,omitempty"`
	Report *domain.HealthReport `json:"report,omitempty"`
}

const (
	MessageHello = "hello"
	MessageEvent = "event"
)

// FeedServer streams monitor events to WebSocket clients
type FeedServer struct {
	monitor ports.HealthMonitor
	cfg     FeedConfig
	logger  *zap.SugaredLogger

	mu          sync.Mutex
	connections map[*websocket.Conn]struct{}
	nextID      atomic.Int64
}

func NewFeedServer(monitor ports.HealthMonitor, cfg FeedConfig, logger *zap.SugaredLogger) *FeedServer {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 32
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &FeedServer{
		monitor:     monitor,
		cfg:         cfg,
		logger:      logger,
		connections: make(map[*websocket.Conn]struct{}),
	}
}

// ConnectionCount returns the number of connected feed clients
func (s *FeedServer) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

func (s *FeedServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := s.nextID.Add(1)
	s.mu.Lock()
	s.connections[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.connections, conn)
		s.mu.Unlock()
	}()

	events, unsubscribe := s.monitor.Subscribe(s.cfg.BufferSize)
	defer unsubscribe()

	s.logger.Infow("feed client connected", "client_id", clientID, "remote_addr", r.RemoteAddr)
	defer s.logger.Infow("feed client disconnected", "client_id", clientID)

	report := s.monitor.Report()
	if err := s.write(conn, FeedMessage{Type: MessageHello, Report: &report}); err != nil {
		return
	}

	// Clients never send data; reading drives pong handling and close detection.
	readTimeout := 2 * s.cfg.PingInterval
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debugw("feed read error", "client_id", clientID, "error", err)
				}
				return
			}
		}
	}()

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.write(conn, FeedMessage{Type: MessageEvent, Event: &ev}); err != nil {
				s.logger.Debugw("feed write failed", "client_id", clientID, "error", err)
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debugw("feed ping failed", "client_id", clientID, "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *FeedServer) write(conn *websocket.Conn, msg FeedMessage) error {
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteJSON(msg)
}

// Close disconnects every client with a going-away frame
func (s *FeedServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(s.cfg.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range s.connections {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
	}
}
