// Package devserver is a development stand-in for the gift service backend:
// it issues sessions, persists notifications in memory, authorizes private
// channels, and pushes search-completed events over the same wire protocol
// the production server uses. It exists so the client can be exercised end
// to end without production infrastructure.
package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Default token lifetime for dev sessions.
const defaultTokenTTL = 12 * time.Hour

// channelPrefix matches the client's private channel naming.
const channelPrefix = "private-App.Models.User."

// searchCompletedEvent is the application event broadcast on completion.
const searchCompletedEvent = "search.completed"

// Config holds the dev server's knobs.
type Config struct {
	// AppKey and AppSecret drive the channel authorization signature.
	AppKey    string
	AppSecret string

	// JWTSecret signs the bearer tokens /api/login mints.
	JWTSecret string

	Logger *slog.Logger
}

// Server is the echo application plus its in-memory state.
type Server struct {
	config Config
	echo   *echo.Echo
	hub    *Hub
	store  *memoryStore
	logger *slog.Logger

	upgrader websocket.Upgrader
}

// New creates a wired dev server.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		echo:   echo.New(),
		hub:    NewHub(config.AppKey, config.AppSecret, logger),
		store:  newMemoryStore(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())

	s.echo.POST("/api/login", s.handleLogin)
	s.echo.POST("/broadcasting/auth", s.handleBroadcastAuth)
	s.echo.GET("/app/:key", s.handleWebSocket)

	notifications := s.echo.Group("/api/notifications")
	notifications.GET("", s.handleList)
	notifications.POST("/:id/read", s.handleMarkRead)
	notifications.POST("/read-all", s.handleMarkAllRead)
	notifications.DELETE("/:id", s.handleDelete)
	notifications.DELETE("", s.handleDeleteAll)

	s.echo.POST("/api/orders/:userID/complete", s.handleOrderComplete)

	return s
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the address and blocks.
func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

// Shutdown stops the echo server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Hub returns the push hub, for tests that publish directly.
func (s *Server) Hub() *Hub {
	return s.hub
}

// loginRequest is the /api/login body. Any non-empty credentials are
// accepted; the user id is the email's local part.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "email and password are required")
	}

	userID, _, _ := strings.Cut(req.Email, "@")

	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(defaultTokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to sign token")
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token: token,
		User:  loginUser{ID: userID, Email: req.Email},
	})
}

// authenticate extracts and verifies the bearer token, returning the user id.
func (s *Server) authenticate(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
	}
	return sub, nil
}

func (s *Server) handleList(c echo.Context) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.store.List(userID))
}

func (s *Server) handleMarkRead(c echo.Context) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}
	if !s.store.MarkRead(userID, c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(c echo.Context) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}
	s.store.MarkAllRead(userID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDelete(c echo.Context) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}
	if !s.store.Delete(userID, c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteAll(c echo.Context) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}
	s.store.DeleteAll(userID)
	return c.NoContent(http.StatusNoContent)
}

// handleBroadcastAuth authorizes a private channel subscription: the bearer
// identity must own the channel being requested.
func (s *Server) handleBroadcastAuth(c echo.Context) error {
	userID, err := s.authenticate(c)
	if err != nil {
		return err
	}

	socketID := c.FormValue("socket_id")
	channel := c.FormValue("channel_name")
	if socketID == "" || channel == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "socket_id and channel_name are required")
	}

	if channel != channelPrefix+userID {
		s.logger.Warn("rejecting channel authorization",
			slog.String("user_id", userID),
			slog.String("channel", channel),
		)
		return echo.NewHTTPError(http.StatusForbidden, "channel does not belong to the authenticated user")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"auth": s.hub.ChannelSignature(socketID, channel),
	})
}

func (s *Server) handleWebSocket(c echo.Context) error {
	if c.Param("key") != s.config.AppKey {
		return echo.NewHTTPError(http.StatusNotFound, "unknown application key")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s.hub.Serve(conn)
	return nil
}

// orderCompleteRequest simulates the backend finishing a background search.
type orderCompleteRequest struct {
	OrderID string `json:"order_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Icon    string `json:"icon,omitempty"`
	Type    string `json:"type"`
}

// handleOrderComplete persists a notification for the user and then pushes
// it on their private channel, the same persist-then-push order the
// production backend uses.
func (s *Server) handleOrderComplete(c echo.Context) error {
	userID := c.Param("userID")

	var req orderCompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "malformed body")
	}
	if req.Type == "" {
		req.Type = "success"
	}

	rec := s.store.Add(userID, Record{
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Icon:      req.Icon,
		Read:      false,
		Timestamp: time.Now().UTC(),
		OrderID:   req.OrderID,
	})

	payload := map[string]any{
		"id":        rec.ID,
		"order_id":  rec.OrderID,
		"title":     rec.Title,
		"message":   rec.Message,
		"icon":      rec.Icon,
		"type":      rec.Type,
		"timestamp": rec.Timestamp.Format(time.RFC3339),
	}
	if err := s.hub.Publish(channelPrefix+userID, searchCompletedEvent, payload); err != nil {
		s.logger.Warn("push publish failed", slog.String("error", err.Error()))
	}

	return c.JSON(http.StatusOK, rec)
}
