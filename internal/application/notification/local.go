package notification

import (
	"context"
	"sync"

	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

// DefaultLocalCap is the retention limit of the local store.
const DefaultLocalCap = 50

// LocalStore is the purely local persistence strategy: nothing survives the
// process, mutations are synchronous, and insertion enforces a retention cap
// by discarding the oldest entries.
type LocalStore struct {
	mu      sync.RWMutex
	entries []notification.Notification
	cap     int
}

// NewLocalStore creates an empty local feed. A non-positive cap falls back
// to DefaultLocalCap.
func NewLocalStore(capacity int) *LocalStore {
	if capacity <= 0 {
		capacity = DefaultLocalCap
	}
	return &LocalStore{cap: capacity}
}

// Notifications returns the feed newest first.
func (s *LocalStore) Notifications() []notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.entries)
}

// UnreadCount returns the number of unread entries.
func (s *LocalStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return unreadCount(s.entries)
}

// Loading always reports false: there is nothing remote to wait for.
func (s *LocalStore) Loading() bool {
	return false
}

// AddFromPush inserts the event at position 0, truncating beyond the cap.
func (s *LocalStore) AddFromPush(evt notification.PushEvent) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := findDuplicate(s.entries, evt); id != "" {
		return id
	}

	n := evt.Notification()
	s.entries = prepend(s.entries, n)
	if len(s.entries) > s.cap {
		s.entries = s.entries[:s.cap]
	}
	return n.ID
}

// FetchAll is a no-op: the local strategy has no remote source.
func (s *LocalStore) FetchAll(context.Context) error {
	return nil
}

// MarkRead flips one entry to read; unknown ids are ignored.
func (s *LocalStore) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Read = true
			break
		}
	}
	return nil
}

// MarkAllRead flips every entry to read.
func (s *LocalStore) MarkAllRead(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		s.entries[i].Read = true
	}
	return nil
}

// Remove deletes one entry; unknown ids are ignored.
func (s *LocalStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

// ClearAll empties the feed.
func (s *LocalStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
