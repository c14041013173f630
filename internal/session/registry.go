package session

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	session   *Session
	expiresAt time.Time
}

// Registry keeps sessions created for request/response clients. A
// session expires after ttl without use.
type Registry struct {
	ttl     time.Duration
	factory func() *Session
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry

	cleanupStop chan struct{}
	cleanupWG   sync.WaitGroup
}

// NewRegistry creates a Registry. A ttl of zero keeps sessions until they
// are deleted.
func NewRegistry(ttl time.Duration, factory func() *Session) *Registry {
	return &Registry{
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create registers a new session.
func (r *Registry) Create() *Session {
	s := r.factory()
	r.mu.Lock()
	r.sessions[s.ID()] = &entry{session: s, expiresAt: r.expiry()}
	r.mu.Unlock()
	return s
}

// Get finds a live session and extends its lifetime.
func (r *Registry) Get(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if r.expired(e) {
		delete(r.sessions, id)
		return nil, false
	}
	e.expiresAt = r.expiry()
	return e.session, true
}

// Delete removes a session; it reports whether one was removed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of registered sessions, expired ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cleanup removes expired sessions.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.sessions {
		if r.expired(e) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup periodically until StopCleanup is called.
func (r *Registry) StartCleanup() {
	if r.cleanupStop != nil {
		return
	}
	r.cleanupStop = make(chan struct{})
	r.cleanupWG.Add(1)
	go func() {
		defer r.cleanupWG.Done()
		ticker := time.NewTicker(r.cleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Cleanup()
			case <-r.cleanupStop:
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup loop started by StartCleanup.
func (r *Registry) StopCleanup() {
	if r.cleanupStop == nil {
		return
	}
	close(r.cleanupStop)
	r.cleanupWG.Wait()
	r.cleanupStop = nil
}

func (r *Registry) cleanupInterval() time.Duration {
	if r.ttl <= 0 {
		return time.Minute
	}
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

func (r *Registry) expiry() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(r.ttl)
}

func (r *Registry) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && r.now().After(e.expiresAt)
}
