// WebSocket streaming of completed weeks. Every step of a model, whether
// driven by the step endpoint or by a stream-initiated run, is pushed to that
// model's subscribers.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/indicators"
)

// WeekMessage is pushed after each completed week.
type WeekMessage struct {
	Type      string                  `json:"type"` // "week"
	Model     uuid.UUID               `json:"model"`
	Week      int                     `json:"week"`
	Finished  bool                    `json:"finished"`
	Indicator indicators.IndicatorRow `json:"indicator"`
}

// controlMessage is sent by clients to start or stop a run.
type controlMessage struct {
	Action     string `json:"action"` // "run" or "stop"
	IntervalMS int    `json:"interval_ms,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans week messages out to the subscribers of each model.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*subscriber]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[*subscriber]bool)}
}

func (h *Hub) register(id uuid.UUID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[*subscriber]bool)
	}
	h.subs[id][s] = true
}

func (h *Hub) unregister(id uuid.UUID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[id][s] {
		delete(h.subs[id], s)
		close(s.send)
		if len(h.subs[id]) == 0 {
			delete(h.subs, id)
		}
	}
}

// Subscribers returns how many clients follow a model.
func (h *Hub) Subscribers(id uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Publish sends a model's latest week to its subscribers. It never blocks;
// a subscriber whose buffer is full is dropped.
func (h *Hub) Publish(id uuid.UUID, m *engine.Model) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[id]
	if len(subs) == 0 {
		return
	}
	msg, err := json.Marshal(WeekMessage{
		Type:      "week",
		Model:     id,
		Week:      m.Week(),
		Finished:  m.Finished(),
		Indicator: m.Latest(),
	})
	if err != nil {
		slog.Error("encode week message", "model", id, "error", err)
		return
	}
	for s := range subs {
		select {
		case s.send <- msg:
		default:
			delete(subs, s)
			close(s.send)
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleStream upgrades to a WebSocket and follows one model. Sending
// {"action":"run"} steps the model to its horizon; {"action":"stop"} halts it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	runner, err := s.Models.Runner(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, 128)}
	s.hub.register(id, sub)
	slog.Info("stream opened", "model", id, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	go s.streamWriter(sub)
	s.streamReader(ctx, cancel, id, sub, runner)
}

func (s *Server) streamWriter(sub *subscriber) {
	for msg := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) streamReader(ctx context.Context, cancel context.CancelFunc, id uuid.UUID, sub *subscriber, runner engine.Steppable) {
	var (
		mu  sync.Mutex
		run *engine.Engine
	)
	defer func() {
		cancel()
		s.hub.unregister(id, sub)
		sub.conn.Close()
		slog.Info("stream closed", "model", id)
	}()

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if json.Unmarshal(data, &msg) != nil {
			continue
		}

		switch msg.Action {
		case "run":
			mu.Lock()
			if run != nil && run.Running() {
				mu.Unlock()
				continue
			}
			run = engine.NewEngine(runner)
			run.Interval = time.Duration(msg.IntervalMS) * time.Millisecond
			e := run
			mu.Unlock()
			go func() {
				if err := e.Run(ctx); err != nil && ctx.Err() == nil {
					slog.Error("stream run failed", "model", id, "error", err)
				}
			}()
		case "stop":
			mu.Lock()
			if run != nil {
				run.Stop()
			}
			mu.Unlock()
		}
	}
}
