package devserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Session write configuration.
const (
	pingInterval    = 30 * time.Second
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	sendBufferSize  = 64
	activityTimeout = 120
)

// wireMessage is the protocol envelope on the push socket.
type wireMessage struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hub tracks connected push sessions and their channel subscriptions, and
// fans events out to every session subscribed to a channel.
type Hub struct {
	appKey    string
	appSecret string
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[*session]bool
	channels map[string]map[*session]bool
	nextID   int
}

// NewHub creates an empty hub.
func NewHub(appKey, appSecret string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		appKey:    appKey,
		appSecret: appSecret,
		logger:    logger,
		sessions:  make(map[*session]bool),
		channels:  make(map[string]map[*session]bool),
	}
}

// ChannelSignature computes the private-channel authorization signature for
// a socket, the same value /broadcasting/auth hands to clients.
func (h *Hub) ChannelSignature(socketID, channel string) string {
	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write([]byte(socketID + ":" + channel))
	return h.appKey + ":" + hex.EncodeToString(mac.Sum(nil))
}

// Publish sends an application event to every session subscribed to the
// channel. The payload is JSON-encoded into the protocol's string-wrapped
// data field.
func (h *Hub) Publish(channel, event string, payload any) error {
	inner, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	wrapped, err := json.Marshal(string(inner))
	if err != nil {
		return fmt.Errorf("wrapping payload: %w", err)
	}
	frame, err := json.Marshal(wireMessage{Event: event, Channel: channel, Data: wrapped})
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sess := range h.channels[channel] {
		sess.enqueue(frame)
	}
	return nil
}

// SubscriberCount returns the number of sessions on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Serve runs the protocol for one upgraded connection and blocks until the
// connection closes.
func (h *Hub) Serve(conn *websocket.Conn) {
	sess := h.register(conn)
	defer h.unregister(sess)

	go sess.writePump()
	sess.greet()
	sess.readPump()
}

func (h *Hub) register(conn *websocket.Conn) *session {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sess := &session{
		hub:      h,
		conn:     conn,
		socketID: fmt.Sprintf("%d.%d", time.Now().Unix(), h.nextID),
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
	h.sessions[sess] = true
	return sess
}

func (h *Hub) unregister(sess *session) {
	h.mu.Lock()
	if _, ok := h.sessions[sess]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, sess)
	for channel := range sess.channels {
		if subs, ok := h.channels[channel]; ok {
			delete(subs, sess)
			if len(subs) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	h.mu.Unlock()

	sess.close()
	h.logger.Debug("push session closed", slog.String("socket_id", sess.socketID))
}

func (h *Hub) subscribe(sess *session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*session]bool)
	}
	h.channels[channel][sess] = true
	if sess.channels == nil {
		sess.channels = make(map[string]bool)
	}
	sess.channels[channel] = true
}

// session is one websocket connection speaking the push protocol.
type session struct {
	hub      *Hub
	conn     *websocket.Conn
	socketID string
	send     chan []byte
	done     chan struct{}

	// channels this session subscribed to; guarded by hub.mu.
	channels map[string]bool

	closeOnce sync.Once
}

func (s *session) enqueue(frame []byte) {
	select {
	case s.send <- frame:
	case <-s.done:
	default:
		s.hub.logger.Warn("push session send buffer full, dropping frame",
			slog.String("socket_id", s.socketID),
		)
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// greet sends pusher:connection_established with the socket id.
func (s *session) greet() {
	data, _ := json.Marshal(fmt.Sprintf(`{"socket_id":%q,"activity_timeout":%d}`, s.socketID, activityTimeout))
	frame, _ := json.Marshal(wireMessage{Event: "pusher:connection_established", Data: data})
	s.enqueue(frame)
}

func (s *session) sendEvent(event, channel string, data string) {
	raw, _ := json.Marshal(data)
	frame, _ := json.Marshal(wireMessage{Event: event, Channel: channel, Data: raw})
	s.enqueue(frame)
}

// readPump handles subscribe and ping frames until the connection dies.
func (s *session) readPump() {
	defer s.close()

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(activityTimeout*time.Second + pongWait)); err != nil {
			return
		}

		var msg wireMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Debug("push session read error",
					slog.String("socket_id", s.socketID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		switch msg.Event {
		case "pusher:subscribe":
			s.handleSubscribe(msg.Data)
		case "pusher:ping":
			s.sendEvent("pusher:pong", "", "{}")
		default:
			s.hub.logger.Debug("unknown client frame", slog.String("event", msg.Event))
		}
	}
}

// subscribeRequest is the client's pusher:subscribe payload.
type subscribeRequest struct {
	Channel string `json:"channel"`
	Auth    string `json:"auth"`
}

func (s *session) handleSubscribe(data json.RawMessage) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendEvent("pusher:error", "", `{"code":4009,"message":"malformed subscribe"}`)
		return
	}

	// Private channels require the signature /broadcasting/auth issued for
	// exactly this socket and channel.
	want := s.hub.ChannelSignature(s.socketID, req.Channel)
	if !hmac.Equal([]byte(req.Auth), []byte(want)) {
		s.sendEvent("pusher:subscription_error", req.Channel, `{"status":403}`)
		return
	}

	s.hub.subscribe(s, req.Channel)
	s.sendEvent("pusher_internal:subscription_succeeded", req.Channel, "{}")
}

// writePump owns all writes to the connection.
func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			frame, _ := json.Marshal(wireMessage{Event: "pusher:ping", Data: json.RawMessage(`"{}"`)})
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}
