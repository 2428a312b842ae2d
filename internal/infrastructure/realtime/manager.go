package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

// Manager errors.
var (
	ErrConnectFailed          = errors.New("push connection failed")
	ErrSubscriptionAuthFailed = errors.New("private channel authorization rejected")
)

// State is the manager's connection lifecycle state.
type State int

// Lifecycle states. The manager starts Disconnected, passes through
// Connecting during the handshake, and is Subscribed while the private
// channel delivers events.
const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Default manager configuration constants.
const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadGrace        = 30 * time.Second
	defaultActivityTimeout  = 120 * time.Second
	defaultChannelPrefix    = "private-App.Models.User."
	defaultEventName        = "search.completed"
	clientVersion           = "0.1.0"
)

// Config holds the push endpoint configuration.
type Config struct {
	// Scheme is "ws" or "wss".
	Scheme string

	// Host and Port locate the push server.
	Host string
	Port int

	// AppKey is the application key baked into the connection URL.
	AppKey string

	// AuthEndpoint is the HTTP URL performing the private-channel
	// authorization handshake.
	AuthEndpoint string

	// ChannelPrefix is prepended to the user id to derive the private
	// channel name; server and client agree on it without negotiation.
	ChannelPrefix string

	// Event is the application event name delivered on the channel.
	Event string

	// HandshakeTimeout bounds each step of connect/subscribe.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the endpoint configuration for a local push server.
func DefaultConfig() Config {
	return Config{
		Scheme:           "ws",
		Host:             "localhost",
		Port:             9000,
		AppKey:           "giftspire",
		AuthEndpoint:     "http://localhost:8080/broadcasting/auth",
		ChannelPrefix:    defaultChannelPrefix,
		Event:            defaultEventName,
		HandshakeTimeout: defaultHandshakeTimeout,
	}
}

// URL returns the websocket connection URL.
func (c Config) URL() string {
	return fmt.Sprintf("%s://%s:%d/app/%s?protocol=%d&client=go&version=%s",
		c.Scheme, c.Host, c.Port, c.AppKey, protocolVersion, clientVersion)
}

// ChannelName derives the private channel name for a user.
func (c Config) ChannelName(userID string) string {
	return c.ChannelPrefix + userID
}

// EventHandler receives a push event delivered on the private channel, along
// with the user id the subscription belongs to.
type EventHandler func(userID string, evt notification.PushEvent)

// SubscribedHandler fires once the private channel is live, before any event
// is delivered on it.
type SubscribedHandler func(userID string)

// Manager owns at most one live push connection and at most one private
// channel subscription, kept in lockstep with the authenticated identity.
// Every subscription attempt is tagged with a monotonic epoch; deliveries
// from a superseded epoch are discarded.
type Manager struct {
	config     Config
	dialer     *websocket.Dialer
	httpClient *http.Client
	logger     *slog.Logger

	onSubscribed SubscribedHandler
	onEvent      EventHandler

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	userID string
	epoch  uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(m *Manager) {
		m.dialer = dialer
	}
}

// WithHTTPClient sets the HTTP client used for channel authorization.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithSubscribedHandler sets the callback fired on reaching Subscribed.
func WithSubscribedHandler(handler SubscribedHandler) Option {
	return func(m *Manager) {
		m.onSubscribed = handler
	}
}

// WithEventHandler sets the callback for delivered push events.
func WithEventHandler(handler EventHandler) Option {
	return func(m *Manager) {
		m.onEvent = handler
	}
}

// NewManager creates a disconnected manager.
func NewManager(config Config, opts ...Option) *Manager {
	if config.ChannelPrefix == "" {
		config.ChannelPrefix = defaultChannelPrefix
	}
	if config.Event == "" {
		config.Event = defaultEventName
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}

	m := &Manager{
		config:     config,
		dialer:     websocket.DefaultDialer,
		httpClient: &http.Client{Timeout: config.HandshakeTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetHandlers installs the subscribed/event callbacks. Call before the
// first Authenticated transition; the bridge and the manager are
// constructed in either order this way.
func (m *Manager) SetHandlers(onSubscribed SubscribedHandler, onEvent EventHandler) {
	m.onSubscribed = onSubscribed
	m.onEvent = onEvent
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SubscribedUserID returns the user id of the active subscription, empty
// when not subscribed.
func (m *Manager) SubscribedUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Authenticated moves the manager toward Subscribed for the given identity.
// Already being subscribed for the same user is a no-op. A subscription for
// a different user is torn down before the new one is attempted, so two
// live subscriptions never coexist. Failures leave the manager Disconnected
// and are not retried; the next authentication transition starts over.
func (m *Manager) Authenticated(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	if m.state == StateSubscribed && m.userID == userID {
		m.mu.Unlock()
		return nil
	}
	if m.conn != nil {
		m.teardownLocked()
	}
	m.epoch++
	myEpoch := m.epoch
	m.state = StateConnecting
	m.userID = ""
	m.mu.Unlock()

	conn, activityTimeout, err := m.handshake(ctx, userID, token)

	m.mu.Lock()
	if m.epoch != myEpoch {
		// Superseded while connecting; whoever bumped the epoch owns the
		// state now.
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.logger.Warn("push subscription failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return err
	}
	m.conn = conn
	m.userID = userID
	m.state = StateSubscribed
	m.mu.Unlock()

	m.logger.Info("subscribed to private channel",
		slog.String("user_id", userID),
		slog.String("channel", m.config.ChannelName(userID)),
	)

	go m.readPump(conn, userID, myEpoch, activityTimeout)

	if m.onSubscribed != nil {
		m.onSubscribed(userID)
	}
	return nil
}

// Unauthenticated tears the connection down synchronously: when it returns,
// the handle is cleared and no late-arriving delivery can be attributed to
// the previous user.
func (m *Manager) Unauthenticated() {
	m.mu.Lock()
	m.epoch++
	m.teardownLocked()
	m.mu.Unlock()
}

// teardownLocked closes the connection and resets to Disconnected. Callers
// must hold mu.
func (m *Manager) teardownLocked() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.userID = ""
	m.state = StateDisconnected
}

// handshake dials the push server, waits for the greeting, authorizes the
// private channel, and subscribes to it. It returns the live connection and
// the server's activity timeout.
func (m *Manager) handshake(ctx context.Context, userID, token string) (*websocket.Conn, time.Duration, error) {
	conn, resp, err := m.dialer.DialContext(ctx, m.config.URL(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: dial: %w", ErrConnectFailed, err)
	}

	greeting, err := m.awaitEvent(conn, eventConnectionEstablished)
	if err != nil {
		_ = conn.Close()
		return nil, 0, err
	}

	var established connectionEstablished
	if decodeErr := decodeData(greeting.Data, &established); decodeErr != nil {
		_ = conn.Close()
		return nil, 0, fmt.Errorf("%w: greeting: %w", ErrConnectFailed, decodeErr)
	}

	channel := m.config.ChannelName(userID)
	authSignature, err := m.authorizeChannel(ctx, established.SocketID, channel, token)
	if err != nil {
		_ = conn.Close()
		return nil, 0, err
	}

	subscribe, err := encodeMessage(eventSubscribe, subscribeData{Channel: channel, Auth: authSignature})
	if err != nil {
		_ = conn.Close()
		return nil, 0, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	if writeErr := conn.WriteMessage(websocket.TextMessage, subscribe); writeErr != nil {
		_ = conn.Close()
		return nil, 0, fmt.Errorf("%w: subscribe: %w", ErrConnectFailed, writeErr)
	}

	if _, err = m.awaitEvent(conn, eventSubscriptionSucceeded); err != nil {
		_ = conn.Close()
		return nil, 0, err
	}

	activityTimeout := defaultActivityTimeout
	if established.ActivityTimeout > 0 {
		activityTimeout = time.Duration(established.ActivityTimeout) * time.Second
	}
	return conn, activityTimeout, nil
}

// awaitEvent reads frames until the wanted protocol event arrives, failing
// on protocol or subscription errors.
func (m *Manager) awaitEvent(conn *websocket.Conn, want string) (message, error) {
	deadline := time.Now().Add(m.config.HandshakeTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return message{}, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return message{}, fmt.Errorf("%w: waiting for %s: %w", ErrConnectFailed, want, err)
		}

		switch msg.Event {
		case want:
			return msg, nil
		case eventSubscriptionError:
			return message{}, ErrSubscriptionAuthFailed
		case eventProtocolError:
			var perr protocolError
			_ = decodeData(msg.Data, &perr)
			return message{}, fmt.Errorf("%w: %s (code %d)", ErrConnectFailed, perr.Message, perr.Code)
		default:
			// Unrelated frame during the handshake window; keep waiting.
		}
	}
}

// authorizeChannel performs the out-of-band authorization handshake with the
// bearer token and returns the channel auth signature.
func (m *Manager) authorizeChannel(ctx context.Context, socketID, channel, token string) (string, error) {
	form := url.Values{}
	form.Set("socket_id", socketID)
	form.Set("channel_name", channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.AuthEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth endpoint: %w", ErrConnectFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		return "", ErrSubscriptionAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: auth endpoint status %d: %s", ErrConnectFailed, resp.StatusCode, body)
	}

	var authResp channelAuthResponse
	if decodeErr := decodeDataStream(resp.Body, &authResp); decodeErr != nil {
		return "", fmt.Errorf("%w: auth response: %w", ErrConnectFailed, decodeErr)
	}
	if authResp.Auth == "" {
		return "", ErrSubscriptionAuthFailed
	}
	return authResp.Auth, nil
}

// readPump delivers channel events until the connection dies or the epoch is
// superseded. It runs as a goroutine per subscription.
func (m *Manager) readPump(conn *websocket.Conn, userID string, epoch uint64, activityTimeout time.Duration) {
	expectedChannel := m.config.ChannelName(userID)
	readWait := activityTimeout + defaultReadGrace

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			m.connectionLost(epoch, err)
			return
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			m.connectionLost(epoch, err)
			return
		}

		switch msg.Event {
		case eventPing:
			pong, _ := encodeMessage(eventPong, struct{}{})
			if err := conn.WriteMessage(websocket.TextMessage, pong); err != nil {
				m.connectionLost(epoch, err)
				return
			}

		case m.config.Event:
			m.deliver(msg, userID, expectedChannel, epoch)

		default:
			m.logger.Debug("ignoring frame", slog.String("event", msg.Event))
		}
	}
}

// deliver hands one channel event to the event handler after the staleness
// and identity guards.
func (m *Manager) deliver(msg message, userID, expectedChannel string, epoch uint64) {
	if msg.Channel != expectedChannel {
		m.logger.Warn("discarding event for foreign channel",
			slog.String("channel", msg.Channel),
			slog.String("expected", expectedChannel),
		)
		return
	}

	var evt notification.PushEvent
	if err := decodeData(msg.Data, &evt); err != nil {
		m.logger.Warn("discarding undecodable event", slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	stale := m.epoch != epoch || m.userID != userID
	m.mu.Unlock()
	if stale {
		m.logger.Warn("discarding event from superseded subscription",
			slog.String("user_id", userID),
		)
		return
	}

	if m.onEvent != nil {
		m.onEvent(userID, evt)
	}
}

// connectionLost handles a transport-terminal failure: for the current epoch
// it forces Disconnected, matching an unauthenticated transition for state
// purposes. A superseded epoch means teardown already happened.
func (m *Manager) connectionLost(epoch uint64, err error) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()
	m.mu.Unlock()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		m.logger.Warn("push connection lost", slog.String("error", err.Error()))
	} else {
		m.logger.Info("push connection closed")
	}
}
