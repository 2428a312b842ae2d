package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

// RemoteAPI is the slice of the persistence API the synced store needs.
// Declared on the consumer side; satisfied by api.Client.
type RemoteAPI interface {
	List(ctx context.Context) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// SyncedStore mirrors the server's durable notification list. Mutations are
// optimistic: the local change applies immediately, then the remote call is
// attempted. A failed single-item mark-read is undone exactly; failed bulk
// operations re-derive truth with a full refetch instead of reconstructing N
// prior states. There is no client-side cap; retention is the server's job.
type SyncedStore struct {
	remote RemoteAPI
	logger *slog.Logger

	mu       sync.RWMutex
	entries  []notification.Notification
	fetching int
}

// SyncedOption configures a SyncedStore.
type SyncedOption func(*SyncedStore)

// WithSyncedLogger sets the logger.
func WithSyncedLogger(logger *slog.Logger) SyncedOption {
	return func(s *SyncedStore) {
		s.logger = logger
	}
}

// NewSyncedStore creates an empty server-backed feed.
func NewSyncedStore(remote RemoteAPI, opts ...SyncedOption) *SyncedStore {
	s := &SyncedStore{
		remote: remote,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifications returns the feed newest first.
func (s *SyncedStore) Notifications() []notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.entries)
}

// UnreadCount returns the number of unread entries.
func (s *SyncedStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return unreadCount(s.entries)
}

// Loading reports whether a full fetch is in flight.
func (s *SyncedStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetching > 0
}

// FetchAll replaces the list with the server's authoritative set. On error
// the local list stays untouched. Overlapping fetches are not cancelled;
// the last one to complete wins.
func (s *SyncedStore) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	s.fetching++
	s.mu.Unlock()

	fetched, err := s.remote.List(ctx)

	s.mu.Lock()
	s.fetching--
	if err == nil {
		s.entries = fetched
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("notification fetch failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// AddFromPush inserts the event at position 0. The server already stored
// the underlying event before pushing it, so the insert cannot diverge; the
// duplicate guard keeps fetch results and push deliveries from describing
// the same event twice, in either arrival order.
func (s *SyncedStore) AddFromPush(evt notification.PushEvent) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := findDuplicate(s.entries, evt); id != "" {
		return id
	}

	n := evt.Notification()
	s.entries = prepend(s.entries, n)
	return n.ID
}

// MarkRead optimistically flips the entry, then syncs. On remote failure
// the flip is undone. Entries that were already read need no remote call.
func (s *SyncedStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	flipped := false
	for i := range s.entries {
		if s.entries[i].ID == id && !s.entries[i].Read {
			s.entries[i].Read = true
			flipped = true
			break
		}
	}
	s.mu.Unlock()

	if !flipped {
		return nil
	}

	if err := s.remote.MarkRead(ctx, id); err != nil {
		s.mu.Lock()
		for i := range s.entries {
			if s.entries[i].ID == id {
				s.entries[i].Read = false
				break
			}
		}
		s.mu.Unlock()
		s.logger.Warn("mark-read sync failed, rolled back",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// MarkAllRead optimistically flips everything, then syncs; a failed sync is
// recovered by refetching the server's state.
func (s *SyncedStore) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.entries {
		s.entries[i].Read = true
	}
	s.mu.Unlock()

	return s.syncBulk(ctx, "mark-all-read", s.remote.MarkAllRead)
}

// Remove optimistically deletes the entry, then syncs; a failed sync is
// recovered by refetching.
func (s *SyncedStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return nil
	}

	return s.syncBulk(ctx, "remove", func(ctx context.Context) error {
		return s.remote.Delete(ctx, id)
	})
}

// ClearAll optimistically empties the feed, then syncs; a failed sync is
// recovered by refetching.
func (s *SyncedStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()

	return s.syncBulk(ctx, "clear-all", s.remote.DeleteAll)
}

// syncBulk runs a remote mutation whose failure is compensated by a full
// refetch rather than an exact undo.
func (s *SyncedStore) syncBulk(ctx context.Context, operation string, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		s.logger.Warn("bulk sync failed, refetching",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		if fetchErr := s.FetchAll(ctx); fetchErr != nil {
			s.logger.Warn("recovery fetch failed",
				slog.String("operation", operation),
				slog.String("error", fetchErr.Error()),
			)
		}
		return err
	}
	return nil
}
