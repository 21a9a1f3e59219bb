// Package ws pushes live floor-view updates (table status, order lifecycle)
// to staff dashboards, one subscription set per branch.
package ws

import (
	"net/http"
	"sync"
	"time"

	"dinetrack-ops-service/internal/auth"
	"dinetrack-ops-service/internal/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

type Server struct {
	logger *zap.Logger
	cfg    config.Config

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func New(logger *zap.Logger, cfg config.Config) *Server {
	return &Server{
		logger: logger,
		cfg:    cfg,
		subs:   make(map[string]map[*client]struct{}),
	}
}

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// FloorViewWS upgrades a staff connection and streams branch updates until
// the peer goes away. Browsers cannot set headers on websocket dials, so the
// token rides in the query string.
func (s *Server) FloorViewWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.VerifyAccessToken(token, s.cfg.JWTSecret)
	if err != nil || !auth.IsStaff(claims.Role) || claims.BranchID == nil || *claims.BranchID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	branchID := *claims.BranchID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn}
	unsubscribe := s.subscribe(branchID, c)
	defer func() {
		unsubscribe()
		_ = conn.Close()
	}()

	_ = c.writeJSON(Message{Event: "connected", Data: map[string]any{"branchId": branchID}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.cfg.WSHeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Server) subscribe(branchID string, c *client) (unsubscribe func()) {
	s.mu.Lock()
	if s.subs[branchID] == nil {
		s.subs[branchID] = make(map[*client]struct{})
	}
	s.subs[branchID][c] = struct{}{}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		clients := s.subs[branchID]
		delete(clients, c)
		if len(clients) == 0 {
			delete(s.subs, branchID)
		}
		s.mu.Unlock()
	}
}

// Broadcast fans a message out to every dashboard watching the branch. Dead
// connections are dropped on write failure.
func (s *Server) Broadcast(branchID string, event string, data any) {
	s.mu.RLock()
	clientsMap := s.subs[branchID]
	clients := make([]*client, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	msg := Message{Event: event, Data: data}
	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			_ = c.conn.Close()
			s.mu.Lock()
			if current := s.subs[branchID]; current != nil {
				delete(current, c)
				if len(current) == 0 {
					delete(s.subs, branchID)
				}
			}
			s.mu.Unlock()
		}
	}
}
