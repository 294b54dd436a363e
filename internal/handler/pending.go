package handler

import (
	"sync"
	"time"
)

// pendingStore tracks email addresses awaiting verification so the resend
// endpoint can work without the caller retyping the address.  Entries are
// added on sign-up and on a login rejected for an unconfirmed email, and
// dropped on successful verification or logout.  Entries expire on their
// own so the map cannot grow without bound.
type pendingStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]time.Time // email -> recorded at
}

func newPendingStore(ttl time.Duration) *pendingStore {
	return &pendingStore{ttl: ttl, m: make(map[string]time.Time)}
}

func (s *pendingStore) Add(email string) {
	if email == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = time.Now()
	// Opportunistic sweep of expired entries.
	for e, at := range s.m {
		if time.Since(at) > s.ttl {
			delete(s.m, e)
		}
	}
}

// Latest returns the most recently recorded pending email, mirroring the
// single "pending verification" slot the web client keeps between a failed
// login and the resend action.  Empty when nothing is tracked.
func (s *pendingStore) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		email  string
		newest time.Time
	)
	for e, at := range s.m {
		if time.Since(at) > s.ttl {
			delete(s.m, e)
			continue
		}
		if at.After(newest) {
			newest = at
			email = e
		}
	}
	return email
}

func (s *pendingStore) Remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, email)
}
