// Package bridge wires the authentication session to the push transport
// lifecycle and routes delivered events into the notification feed, keeping
// transport side effects out of every other component.
package bridge

import (
	"context"
	"log/slog"
	"time"

	appnotification "github.com/Matt0472/giftspire-client/internal/application/notification"
	"github.com/Matt0472/giftspire-client/internal/domain/notification"
	"github.com/Matt0472/giftspire-client/internal/infrastructure/auth"
	"github.com/Matt0472/giftspire-client/internal/toast"
)

// pushToastDuration matches the display time the web client used for
// search-completed toasts.
const pushToastDuration = 7 * time.Second

// ChannelManager is the transport lifecycle the bridge drives. Declared on
// the consumer side; satisfied by realtime.Manager.
type ChannelManager interface {
	Authenticated(ctx context.Context, userID, token string) error
	Unauthenticated()
	SubscribedUserID() string
}

// Bridge is the only place transport lifecycle calls are issued from. It
// observes the session store and translates login/logout into connect and
// disconnect; a subscription going live triggers the initial reconciliation
// fetch, and delivered events are inserted into the feed and surfaced as
// toasts.
type Bridge struct {
	authStore *auth.Store
	manager   ChannelManager
	feed      appnotification.Feed
	toasts    toast.Notifier
	logger    *slog.Logger

	ctx         context.Context
	unsubscribe func()
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// New creates an uninstalled bridge.
func New(
	authStore *auth.Store,
	manager ChannelManager,
	feed appnotification.Feed,
	toasts toast.Notifier,
	opts ...Option,
) *Bridge {
	b := &Bridge{
		authStore: authStore,
		manager:   manager,
		feed:      feed,
		toasts:    toasts,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Install registers the bridge on the session store and, when a session
// already exists, drives the initial connect. ctx bounds all transport work
// the bridge initiates; cancel it to stop.
func (b *Bridge) Install(ctx context.Context) {
	b.ctx = ctx
	b.unsubscribe = b.authStore.Subscribe(b.onAuthChange)

	if session, ok := b.authStore.Current(); ok {
		b.onAuthChange(session, true)
	}
}

// Uninstall removes the observer and disconnects.
func (b *Bridge) Uninstall() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.manager.Unauthenticated()
}

// onAuthChange is the single observer driving the transport lifecycle.
// Redundant logins for the already-subscribed user are absorbed by the
// manager's idempotence instead of causing reconnect storms.
func (b *Bridge) onAuthChange(session auth.Session, loggedIn bool) {
	if !loggedIn {
		b.manager.Unauthenticated()
		return
	}

	// Connecting suspends on network round-trips; keep the observer
	// callback non-blocking.
	go func() {
		if err := b.manager.Authenticated(b.ctx, session.UserID, session.Token); err != nil {
			// Degrades to "no live updates"; the rest of the client keeps
			// working and the next login retries from scratch.
			b.logger.Warn("push connect failed",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// OnSubscribed is handed to the channel manager: a live subscription
// triggers one full reconciliation fetch.
func (b *Bridge) OnSubscribed(userID string) {
	go func() {
		if err := b.feed.FetchAll(b.ctx); err != nil {
			b.logger.Warn("initial notification fetch failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// OnEvent is handed to the channel manager: delivered events go into the
// feed and onto the toast surface. Events for a user other than the current
// session are dropped; the manager's epoch guard normally catches these,
// this is the last line.
func (b *Bridge) OnEvent(userID string, evt notification.PushEvent) {
	session, ok := b.authStore.Current()
	if !ok || session.UserID != userID {
		b.logger.Warn("dropping push event for stale identity",
			slog.String("event_user", userID),
		)
		return
	}

	b.feed.AddFromPush(evt)
	b.toasts.Success(evt.Title, evt.Message, pushToastDuration)
}
