// Package main provides the notification client daemon entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	appnotification "github.com/Matt0472/giftspire-client/internal/application/notification"
	"github.com/Matt0472/giftspire-client/internal/bridge"
	"github.com/Matt0472/giftspire-client/internal/config"
	"github.com/Matt0472/giftspire-client/internal/infrastructure/api"
	"github.com/Matt0472/giftspire-client/internal/infrastructure/auth"
	"github.com/Matt0472/giftspire-client/internal/infrastructure/realtime"
	"github.com/Matt0472/giftspire-client/internal/toast"
)

// Container errors.
var ErrNoCredentials = errors.New("no token or email/password configured")

const loginTimeout = 15 * time.Second

// Container holds all client dependencies and manages their lifecycle.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	AuthStore *auth.Store
	Remote    *api.Client
	Feed      appnotification.Feed
	Manager   *realtime.Manager
	Toasts    toast.Notifier
	Bridge    *bridge.Bridge

	httpClient *http.Client
}

// ContainerOption configures the container.
type ContainerOption func(*Container)

// WithLogger sets the logger used by all components.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// NewContainer wires the client pipeline: session store, REST client, feed
// store, channel manager, toast surface, and the bridge holding them
// together.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = &http.Client{Timeout: cfg.API.Timeout}
	c.AuthStore = auth.NewStore()

	c.Remote = api.NewClient(api.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		Token:      c.AuthStore.Token,
		HTTPClient: c.httpClient,
		Logger:     c.Logger,
	})

	switch cfg.Feed.Mode {
	case config.FeedModeLocal:
		c.Feed = appnotification.NewLocalStore(cfg.Feed.LocalCap)
	case config.FeedModeSynced:
		c.Feed = appnotification.NewSyncedStore(c.Remote,
			appnotification.WithSyncedLogger(c.Logger))
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Feed.Mode)
	}

	c.Manager = realtime.NewManager(realtime.Config{
		Scheme:           cfg.Realtime.Scheme,
		Host:             cfg.Realtime.Host,
		Port:             cfg.Realtime.Port,
		AppKey:           cfg.Realtime.AppKey,
		AuthEndpoint:     cfg.AuthEndpoint(),
		ChannelPrefix:    cfg.Realtime.ChannelPrefix,
		Event:            cfg.Realtime.Event,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
	}, realtime.WithLogger(c.Logger))

	c.Toasts = toast.NewLogNotifier(c.Logger)

	c.Bridge = bridge.New(c.AuthStore, c.Manager, c.Feed, c.Toasts,
		bridge.WithLogger(c.Logger))
	c.Manager.SetHandlers(c.Bridge.OnSubscribed, c.Bridge.OnEvent)

	return c, nil
}

// Start installs the bridge and establishes the configured session. The
// bridge reacts to the login and drives the push transport from there.
func (c *Container) Start(ctx context.Context) error {
	c.Bridge.Install(ctx)

	session, err := c.establishSession(ctx)
	if err != nil {
		return err
	}

	c.Logger.Info("session established",
		slog.String("user_id", session.UserID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	c.AuthStore.Login(session)
	return nil
}

// Close logs out and removes the bridge, disconnecting the push transport.
func (c *Container) Close() error {
	c.AuthStore.Logout()
	c.Bridge.Uninstall()
	return nil
}

// establishSession turns the configured credentials into a session: a
// pre-issued token wins, otherwise email/password are exchanged at the
// login endpoint.
func (c *Container) establishSession(ctx context.Context) (auth.Session, error) {
	if c.Config.Login.Token != "" {
		return auth.SessionFromToken(c.Config.Login.Token)
	}
	if c.Config.Login.Email == "" || c.Config.Login.Password == "" {
		return auth.Session{}, ErrNoCredentials
	}
	return c.login(ctx, c.Config.Login.Email, c.Config.Login.Password)
}

func (c *Container) login(ctx context.Context, email, password string) (auth.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return auth.Session{}, fmt.Errorf("encoding login request: %w", err)
	}

	loginURL := strings.TrimSuffix(c.Config.API.BaseURL, "/") + "/api/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return auth.Session{}, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return auth.Session{}, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return auth.Session{}, fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
		return auth.Session{}, fmt.Errorf("decoding login response: %w", decodeErr)
	}

	return auth.SessionFromToken(out.Token)
}
