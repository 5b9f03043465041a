package apiclient

import (
	"sync"
	"time"
)

// SessionStore holds transient values between navigation steps, such as a
// canvas payload handed from the editor back to the wizard. Entries expire.
type SessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]sessionEntry
}

type sessionEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewSessionStore creates a store whose entries live for ttl
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]sessionEntry),
	}
}

// Put stores a copy of value under key
func (s *SessionStore) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	s.items[key] = sessionEntry{value: append([]byte(nil), value...), expiresAt: s.now().Add(s.ttl)}
}

// Get returns the value for key if it has not expired
func (s *SessionStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.items, key)
		return nil, false
	}
	return append([]byte(nil), entry.value...), true
}

// Take returns the value for key and removes it
func (s *SessionStore) Take(key string) ([]byte, bool) {
	value, ok := s.Get(key)
	if ok {
		s.Delete(key)
	}
	return value, ok
}

// Delete removes key
func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len returns the number of live entries
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	return len(s.items)
}

func (s *SessionStore) evictExpired() {
	now := s.now()
	for key, entry := range s.items {
		if !now.Before(entry.expiresAt) {
			delete(s.items, key)
		}
	}
}
