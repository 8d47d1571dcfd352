package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-facility/internal/auth"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-facility/internal/manifest"
)

// Frame types exchanged over /ws.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameAck         = "ack"
	FrameError       = "error"
)

// outboxSize bounds the per-subscriber queue; a slow reader loses events
// rather than stalling the compiler.
const outboxSize = 64

// Frame is the JSON envelope for every WebSocket message.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	At      string          `json:"at,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChannelList is the payload of subscribe and unsubscribe frames.
type ChannelList struct {
	Channels []string `json:"channels"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware and the ticket.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans compile events out to WebSocket subscribers. It implements
// manifest.Broadcaster.
type Hub struct {
	logger *logging.Logger

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn  *websocket.Conn
	scope *auth.Claims
	out   chan []byte
	done  chan struct{}
	once  sync.Once

	mu     sync.RWMutex
	topics map[string]bool
}

// NewHub creates a hub with no subscribers.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[*subscriber]struct{})}
}

// Run waits for ctx and then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

// ClientCount reports connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast queues payload for every subscriber of channel. A payload that
// names a site is only delivered to tokens scoped to that site.
func (h *Hub) Broadcast(channel string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encoding broadcast payload", "channel", channel, "error", err)
		return
	}
	frame, err := json.Marshal(Frame{
		Type:    FrameEvent,
		Channel: channel,
		At:      time.Now().UTC().Format(time.RFC3339),
		Payload: body,
	})
	if err != nil {
		h.logger.Error("encoding broadcast frame", "channel", channel, "error", err)
		return
	}
	site := siteOf(payload)

	delivered, dropped := 0, 0
	h.mu.RLock()
	for s := range h.subs {
		if !s.wants(channel) || !s.allowed(site) {
			continue
		}
		if s.enqueue(frame) {
			delivered++
		} else {
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.logger.Warn("websocket subscribers too slow, events dropped", "channel", channel, "dropped", dropped)
	}
	if delivered > 0 {
		h.logger.Debug("broadcast queued", "channel", channel, "site_id", site, "recipients", delivered)
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("websocket subscriber connected", "clients", n)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	s.stop()
	h.logger.Debug("websocket subscriber left", "clients", n)
}

func siteOf(payload any) string {
	switch p := payload.(type) {
	case manifest.Summary:
		return p.SiteID
	case *manifest.Summary:
		if p != nil {
			return p.SiteID
		}
	}
	return ""
}

// handleWebSocket upgrades a connection that presents a ticket from
// POST /auth/ws-ticket. The ticket's claims scope what the socket receives.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	claims, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn:   conn,
		scope:  claims,
		out:    make(chan []byte, outboxSize),
		done:   make(chan struct{}),
		topics: make(map[string]bool),
	}
	s.hub.add(sub)

	go sub.writeLoop(s.wsCfg)
	go func() {
		defer s.hub.remove(sub)
		sub.readLoop(s.wsCfg, s.hub.logger)
	}()
}

func (s *subscriber) stop() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close() //nolint:errcheck // Closing an already-broken socket
	})
}

// enqueue never blocks; false means the outbox was full or the
// subscriber has gone.
func (s *subscriber) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

func (s *subscriber) wants(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics[channel]
}

func (s *subscriber) allowed(site string) bool {
	return site == "" || s.scope == nil || s.scope.CanAccessSite(site)
}

func (s *subscriber) readLoop(cfg config.WebSocketConfig, logger *logging.Logger) {
	deadline := cfg.ReadDeadline()
	extend := func() error { return s.conn.SetReadDeadline(time.Now().Add(deadline)) }

	s.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // A failed deadline surfaces as a read error
	s.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // A failed deadline surfaces as a read error
		s.handle(data)
	}
}

func (s *subscriber) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(cfg.PingPeriod())
	defer ping.Stop()
	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	write := func(kind int, data []byte) error {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return s.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case <-s.done:
			write(websocket.CloseMessage, nil) //nolint:errcheck // Peer may already be gone
			return
		case frame := <-s.out:
			if err := write(websocket.TextMessage, frame); err != nil {
				s.stop()
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				s.stop()
				return
			}
		}
	}
}

func (s *subscriber) handle(data []byte) {
	var in Frame
	if err := json.Unmarshal(data, &in); err != nil {
		s.reply(Frame{Type: FrameError}, map[string]string{"message": "invalid JSON frame"})
		return
	}

	switch in.Type {
	case FramePing:
		s.reply(Frame{Type: FramePong, ID: in.ID}, nil)
	case FrameSubscribe, FrameUnsubscribe:
		var list ChannelList
		if err := json.Unmarshal(in.Payload, &list); err != nil || len(list.Channels) == 0 {
			s.reply(Frame{Type: FrameError, ID: in.ID}, map[string]string{"message": in.Type + " needs a channels list"})
			return
		}
		s.mu.Lock()
		for _, ch := range list.Channels {
			if in.Type == FrameSubscribe {
				s.topics[ch] = true
			} else {
				delete(s.topics, ch)
			}
		}
		s.mu.Unlock()
		s.reply(Frame{Type: FrameAck, ID: in.ID}, map[string]any{in.Type + "d": list.Channels})
	default:
		s.reply(Frame{Type: FrameError, ID: in.ID}, map[string]string{"message": "unknown frame type: " + in.Type})
	}
}

func (s *subscriber) reply(f Frame, payload any) {
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return
		}
		f.Payload = body
	}
	f.At = time.Now().UTC().Format(time.RFC3339)
	if data, err := json.Marshal(f); err == nil {
		s.enqueue(data)
	}
}
