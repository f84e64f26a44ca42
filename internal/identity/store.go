// Package identity holds the authenticated principal for one daemon process.
package identity

import (
	"errors"
	"slices"
	"sync"
)

// ErrNoPrincipal is returned by Require when nobody is logged in.
var ErrNoPrincipal = errors.New("identity: no authenticated principal")

// Listener observes principal changes. userID is empty after a logout.
type Listener func(userID string)

// Store is an observable holder of the current user ID. Set re-notifies
// subscribers even when the ID does not change, mirroring identity sources
// that re-emit the same principal.
type Store struct {
	mu     sync.Mutex
	userID string
	subs   map[uint64]Listener
	order  []uint64
	next   uint64
	closed bool
}

// NewStore creates a store, optionally seeded with a logged-in user.
func NewStore(userID string) *Store {
	return &Store{
		userID: userID,
		subs:   make(map[uint64]Listener),
	}
}

// Current returns the user ID and whether a principal is authenticated.
func (s *Store) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID != ""
}

// Require returns the user ID or ErrNoPrincipal.
func (s *Store) Require() (string, error) {
	id, ok := s.Current()
	if !ok {
		return "", ErrNoPrincipal
	}
	return id, nil
}

// Set records userID as the principal and notifies subscribers. An empty
// userID is a logout.
func (s *Store) Set(userID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.userID = userID
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(userID)
	}
}

// Clear logs the principal out.
func (s *Store) Clear() {
	s.Set("")
}

// Subscribe registers fn and returns its unsubscribe function. fn is not
// called with the current value; callers read Current themselves.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.subs[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			s.order = slices.DeleteFunc(s.order, func(v uint64) bool { return v == id })
		})
	}
}

// Close drops every subscriber. Later calls to Set are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.subs)
	s.order = nil
}

func (s *Store) snapshot() []Listener {
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.subs[id])
	}
	return out
}
