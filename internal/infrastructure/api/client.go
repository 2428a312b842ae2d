// Package api provides the HTTP client for the notification persistence API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

// ErrRemoteUnavailable is returned when the persistence API cannot be
// reached or answers with a non-2xx status. Callers keep their local state
// intact and decide their own recovery.
var ErrRemoteUnavailable = errors.New("notification API unavailable")

const defaultHTTPTimeout = 30 * time.Second

// TokenProvider returns the bearer token for the current session. An empty
// return sends the request without credentials (the server rejects it, which
// surfaces as ErrRemoteUnavailable like any other non-2xx).
type TokenProvider func() string

// ClientConfig contains configuration for Client.
type ClientConfig struct {
	BaseURL    string
	Token      TokenProvider
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the notification endpoints of the gift service API.
type Client struct {
	baseURL    string
	token      TokenProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a notification API client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	token := cfg.Token
	if token == nil {
		token = func() string { return "" }
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// record is the wire shape of a persisted notification.
type record struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id,omitempty"`
}

func (r record) notification() notification.Notification {
	kind := notification.Kind(r.Type)
	if !kind.IsValid() {
		kind = notification.KindInfo
	}
	return notification.Notification{
		ID:        r.ID,
		Kind:      kind,
		Title:     r.Title,
		Message:   r.Message,
		Icon:      r.Icon,
		Read:      r.Read,
		Timestamp: r.Timestamp,
		OrderID:   r.OrderID,
		SearchID:  r.OrderID,
	}
}

// List fetches the server's authoritative notification list, newest first.
func (c *Client) List(ctx context.Context) ([]notification.Notification, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/notifications")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err = c.checkStatus(ctx, resp, "list notifications"); err != nil {
		return nil, err
	}

	var records []record
	if decodeErr := json.NewDecoder(resp.Body).Decode(&records); decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrRemoteUnavailable, decodeErr)
	}

	notifications := make([]notification.Notification, 0, len(records))
	for _, r := range records {
		notifications = append(notifications, r.notification())
	}
	return notifications, nil
}

// MarkRead marks one notification as read on the server.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.doNoBody(ctx, http.MethodPost, "/api/notifications/"+id+"/read", "mark read")
}

// MarkAllRead marks every notification of the current user as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.doNoBody(ctx, http.MethodPost, "/api/notifications/read-all", "mark all read")
}

// Delete removes one notification on the server.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doNoBody(ctx, http.MethodDelete, "/api/notifications/"+id, "delete notification")
}

// DeleteAll removes every notification of the current user.
func (c *Client) DeleteAll(ctx context.Context) error {
	return c.doNoBody(ctx, http.MethodDelete, "/api/notifications", "delete all notifications")
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	return resp, nil
}

func (c *Client) doNoBody(ctx context.Context, method, path, operation string) error {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(ctx, resp, operation)
}

func (c *Client) checkStatus(ctx context.Context, resp *http.Response, operation string) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	c.logger.WarnContext(ctx, "notification API request failed",
		slog.String("operation", operation),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)),
	)
	return fmt.Errorf("%w: %s: status %d", ErrRemoteUnavailable, operation, resp.StatusCode)
}
