package devserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the wire shape of a persisted notification, matching the
// production API's responses.
type Record struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id,omitempty"`
}

// memoryStore keeps per-user notification lists, newest first. It stands in
// for the production database.
type memoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byUser: make(map[string][]Record)}
}

// Add persists a record for a user, assigning a server id, and returns it.
func (s *memoryStore) Add(userID string, rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	s.byUser[userID] = append([]Record{rec}, s.byUser[userID]...)
	return rec
}

// List returns a user's records newest first.
func (s *memoryStore) List(userID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byUser[userID]
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// MarkRead flips one record; unknown ids report false.
func (s *memoryStore) MarkRead(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	for i := range records {
		if records[i].ID == id {
			records[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead flips every record of a user.
func (s *memoryStore) MarkAllRead(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	for i := range records {
		records[i].Read = true
	}
}

// Delete removes one record; unknown ids report false.
func (s *memoryStore) Delete(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	for i := range records {
		if records[i].ID == id {
			s.byUser[userID] = append(records[:i], records[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteAll removes every record of a user.
func (s *memoryStore) DeleteAll(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
