package auth

import (
	"sync"
)

// Observer is notified on every authentication transition. loggedIn is true
// for login (session populated) and false for logout (session zero).
type Observer func(session Session, loggedIn bool)

// Store owns the current session and the observer registrations that drive
// transport lifecycle. All mutation goes through Login and Logout; observers
// never mutate the store from their callback.
type Store struct {
	mu        sync.RWMutex
	session   Session
	loggedIn  bool
	observers map[int]Observer
	nextID    int
}

// NewStore creates an empty, logged-out session store.
func NewStore() *Store {
	return &Store{
		observers: make(map[int]Observer),
	}
}

// Current returns the active session and whether one exists.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.loggedIn
}

// Token returns the current bearer token, empty when logged out. It is
// shaped for use as an api.TokenProvider.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Login installs a session and notifies observers. A login over an existing
// session (same or different user) still notifies; observers that need
// idempotence dedupe on the user id themselves.
func (s *Store) Login(session Session) {
	s.mu.Lock()
	s.session = session
	s.loggedIn = true
	observers := s.snapshotObservers()
	s.mu.Unlock()

	for _, observer := range observers {
		observer(session, true)
	}
}

// Logout clears the session and notifies observers. Logging out while
// already logged out is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	if !s.loggedIn {
		s.mu.Unlock()
		return
	}
	s.session = Session{}
	s.loggedIn = false
	observers := s.snapshotObservers()
	s.mu.Unlock()

	for _, observer := range observers {
		observer(Session{}, false)
	}
}

// Subscribe registers an observer and returns a function that removes it.
// The observer is invoked synchronously on every subsequent transition, in
// registration order.
func (s *Store) Subscribe(observer Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = observer
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// snapshotObservers returns observers in registration order. Callers must
// hold mu.
func (s *Store) snapshotObservers() []Observer {
	observers := make([]Observer, 0, len(s.observers))
	for id := 0; id < s.nextID; id++ {
		if observer, ok := s.observers[id]; ok {
			observers = append(observers, observer)
		}
	}
	return observers
}
