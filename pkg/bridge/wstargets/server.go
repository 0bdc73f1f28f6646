// Package wstargets serves detected targets to websocket clients as
// JSON, one frame per target.
package wstargets

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"radarlink/pkg/bridge"
	"radarlink/pkg/logger"
	"radarlink/pkg/navigation"
)

// TargetMessage is the JSON frame sent for each target.
type TargetMessage struct {
	Session string  `json:"session"`
	TS      string  `json:"ts"`
	Bearing float64 `json:"bearing_deg"`
	Range   float64 `json:"range_m"`
	Power   float64 `json:"power_db,omitempty"`
}

// Server accepts websocket connections and relays every target
// published on the hub.
type Server struct {
	addr    string
	hub     *bridge.Hub
	log     *logger.Log
	session string
	sendBuf int

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

type Option func(*Server)

func WithLogger(log *logger.Log) Option {
	return func(s *Server) { s.log = log }
}

func WithSendBuffer(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.sendBuf = size
		}
	}
}

func NewServer(addr string, hub *bridge.Hub, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		hub:     hub,
		log:     logger.Default(),
		session: uuid.NewString(),
		sendBuf: 64,
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)

	httpServer := &http.Server{Addr: s.addr, Handler: mux}

	sub := s.hub.Subscribe()
	go s.broadcastLoop(sub)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn, send: make(chan []byte, s.sendBuf)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writeLoop()
	c.readLoop()

	c.close()
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// broadcastLoop drains the subscription until the hub closes it.
func (s *Server) broadcastLoop(sub *bridge.Subscription) {
	for target := range sub.C() {
		s.broadcastTarget(target)
	}
}

func (s *Server) broadcastTarget(target navigation.Target) {
	msg := TargetMessage{
		Session: s.session,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Bearing: target.Bearing,
		Range:   target.Range,
		Power:   target.Power,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.trySend(payload)
	}
}

func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.close()
			return
		}
	}
}

func (c *client) trySend(msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
