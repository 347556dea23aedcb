package session

import (
	"context"
	"sync"
)

// Registry owns one session per watched job id. Sessions outlive the
// requests that create them, so they hang off the registry's base context,
// never a request context.
type Registry struct {
	mu       sync.Mutex
	base     context.Context
	deps     Deps
	sessions map[string]*Session
}

// NewRegistry creates an empty registry sharing one set of dependencies.
func NewRegistry(base context.Context, deps Deps) *Registry {
	if base == nil {
		base = context.Background()
	}
	return &Registry{
		base:     base,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Watch returns the session for a job id, creating and starting it if this
// is the first observer. Idempotent.
func (r *Registry) Watch(jobID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[jobID]; ok {
		return s
	}
	s := New(r.base, jobID, r.deps)
	r.sessions[jobID] = s
	return s
}

// Get returns the session for a job id if one is being watched.
func (r *Registry) Get(jobID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[jobID]
	return s, ok
}

// Unwatch tears down and forgets the session for a job id.
func (r *Registry) Unwatch(jobID string) {
	r.mu.Lock()
	s, ok := r.sessions[jobID]
	delete(r.sessions, jobID)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close tears down every session. Called on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
