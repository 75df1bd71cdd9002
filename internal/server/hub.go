package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"ammclob/internal/present"
	"ammclob/internal/refresh"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServerMessage is pushed to websocket clients.
type ServerMessage struct {
	Type    string          `json:"type"` // "hello", "status", "frame" or "error"
	Session string          `json:"session,omitempty"`
	Status  *StatusResponse `json:"status,omitempty"`
	Frame   *present.Frame  `json:"frame,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ClientMessage is an operation sent by a websocket client.
type ClientMessage struct {
	Op string `json:"op"` // "select", "view" or "reload"
	SelectionRequest
	ViewRequest
}

// Hub fans controller transitions out to websocket sessions. Transitions are
// coalesced: the hub always renders the controller's latest state.
type Hub struct {
	chart  Chart
	server *Server
	logger *zap.Logger
	dirty  chan struct{}

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHub(chart Chart, server *Server, logger *zap.Logger) *Hub {
	return &Hub{
		chart:    chart,
		server:   server,
		logger:   logger,
		dirty:    make(chan struct{}, 1),
		sessions: make(map[string]*session),
	}
}

// Run subscribes to the controller and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	cancel := h.chart.Subscribe(func(refresh.Status) {
		select {
		case h.dirty <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.dirty:
			for _, msg := range h.currentMessages() {
				h.broadcast(msg)
			}
		}
	}
}

// currentMessages renders the status and, when READY, the frame.
func (h *Hub) currentMessages() [][]byte {
	st := h.chart.Status()
	status := h.server.statusResponse(st)
	out := [][]byte{h.encode(ServerMessage{Type: "status", Status: &status})}

	if st.State != refresh.Ready {
		return out
	}
	frame, err := h.chart.Frame()
	switch {
	case err == nil:
		out = append(out, h.encode(ServerMessage{Type: "frame", Frame: &frame}))
	case errors.Is(err, refresh.ErrNotReady):
		// superseded between Status and Frame; the next transition re-renders
	default:
		out = append(out, h.encode(ServerMessage{Type: "error", Error: err.Error()}))
	}
	return out
}

func (h *Hub) encode(msg ServerMessage) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		b, _ = json.Marshal(ServerMessage{Type: "error", Error: "encode failure"})
	}
	return b
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sess := range h.sessions {
		if !sess.enqueue(msg) {
			h.logger.Warn("dropping slow websocket session", zap.String("session", id))
			delete(h.sessions, id)
			sess.close()
		}
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll disconnects every session.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sess := range h.sessions {
		delete(h.sessions, id)
		sess.close()
	}
}

// Serve upgrades the request and runs the session until the peer leaves.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	// Registered before the initial render; later transitions arrive by broadcast.
	h.mu.Lock()
	h.sessions[sess.id] = sess
	sess.enqueue(h.encode(ServerMessage{Type: "hello", Session: sess.id}))
	h.mu.Unlock()
	for _, msg := range h.currentMessages() {
		sess.enqueue(msg)
	}
	h.logger.Info("websocket session opened", zap.String("session", sess.id))

	go sess.writePump(h.logger)
	h.readPump(sess)

	h.mu.Lock()
	delete(h.sessions, sess.id)
	h.mu.Unlock()
	sess.close()
	h.logger.Info("websocket session closed", zap.String("session", sess.id))
}

func (h *Hub) readPump(sess *session) {
	sess.conn.SetReadLimit(64 * 1024)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := sess.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("session", sess.id), zap.Error(err))
			}
			return
		}
		if err := h.apply(msg); err != nil {
			sess.enqueue(h.encode(ServerMessage{Type: "error", Error: err.Error()}))
		}
	}
}

func (h *Hub) apply(msg ClientMessage) error {
	switch msg.Op {
	case "select":
		_, _, err := h.server.applySelection(msg.SelectionRequest)
		return err
	case "view":
		_, err := h.server.applyView(msg.ViewRequest)
		return err
	case "reload":
		if _, ok := h.chart.Reload(); !ok {
			return errors.New("no pair selected")
		}
		return nil
	}
	return errors.New("unknown op " + msg.Op)
}

type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	once sync.Once
	done chan struct{}
}

// enqueue reports false when the session is closed or its buffer is full.
func (s *session) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *session) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("websocket write failed", zap.String("session", s.id), zap.Error(err))
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}
