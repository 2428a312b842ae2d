// Package notification implements the client's notification feed stores.
//
// Two persistence strategies exist and are not layered: LocalStore keeps a
// capped, ephemeral list, SyncedStore mirrors the server's durable list.
// Callers pick exactly one.
package notification

import (
	"context"

	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

// Feed is the single source of truth for the current user's notifications.
// Position 0 is always the most recent entry.
type Feed interface {
	// Notifications returns the feed newest first.
	Notifications() []notification.Notification

	// UnreadCount is derived on every call, never cached.
	UnreadCount() int

	// Loading reports whether a full fetch is in flight.
	Loading() bool

	// AddFromPush inserts a push-delivered event at position 0 and returns
	// the entry's id. Applying the same underlying server event twice
	// leaves exactly one entry.
	AddFromPush(evt notification.PushEvent) string

	// FetchAll replaces the list with the server's authoritative set. On
	// failure the existing list is left untouched.
	FetchAll(ctx context.Context) error

	// MarkRead flips one entry to read. Unknown ids are ignored.
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead flips every entry to read.
	MarkAllRead(ctx context.Context) error

	// Remove deletes one entry. Unknown ids are ignored.
	Remove(ctx context.Context, id string) error

	// ClearAll empties the feed.
	ClearAll(ctx context.Context) error
}

// unreadCount counts unread entries. Shared by both stores; the list is
// capped and small, so recomputing is cheaper than cache invalidation.
func unreadCount(entries []notification.Notification) int {
	count := 0
	for _, n := range entries {
		if !n.Read {
			count++
		}
	}
	return count
}

// snapshot returns a copy so callers can iterate without holding the
// store's lock.
func snapshot(entries []notification.Notification) []notification.Notification {
	out := make([]notification.Notification, len(entries))
	copy(out, entries)
	return out
}

// prepend inserts n at position 0.
func prepend(entries []notification.Notification, n notification.Notification) []notification.Notification {
	return append([]notification.Notification{n}, entries...)
}

// findDuplicate returns the id of an existing entry describing the same
// underlying server event, or empty when there is none.
func findDuplicate(entries []notification.Notification, evt notification.PushEvent) string {
	for _, n := range entries {
		if evt.Matches(n) {
			return n.ID
		}
	}
	return ""
}
