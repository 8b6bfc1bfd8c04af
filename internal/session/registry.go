package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a session id does not resolve.
var ErrNotFound = errors.New("session not found")

type entry struct {
	mu    sync.Mutex
	state *State
}

// Registry holds live sessions. Each session carries its own mutex so one
// session's pipeline never blocks another's; With serializes all writers of
// a single session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// Create registers a new session for the given query and returns its state.
func (r *Registry) Create(query string, queryContext map[string]any) *State {
	st := New(query, queryContext)
	r.mu.Lock()
	r.sessions[st.ID] = &entry{state: st}
	r.mu.Unlock()
	return st
}

// With runs fn while holding the session's writer lock. The state must not
// be retained past fn's return by the caller's goroutine.
func (r *Registry) With(id string, fn func(*State) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// Snapshot returns a deep-enough copy of the session state for read-only
// presentation use: slices are copied so concurrent pipeline appends cannot
// race with readers.
func (r *Registry) Snapshot(id string) (State, error) {
	var out State
	err := r.With(id, func(s *State) error {
		out = *s
		out.Requirements = append([]Requirement(nil), s.Requirements...)
		out.Recommendations = append([]Recommendation(nil), s.Recommendations...)
		for i := range out.Recommendations {
			if fs := out.Recommendations[i].FeedbackScore; fs != nil {
				v := *fs
				out.Recommendations[i].FeedbackScore = &v
			}
		}
		out.Templates = append([]Template(nil), s.Templates...)
		out.FeedbackHistory = append([]FeedbackRef(nil), s.FeedbackHistory...)
		out.Errors = append([]string(nil), s.Errors...)
		out.Warnings = append([]string(nil), s.Warnings...)
		return nil
	})
	return out, err
}

// IDs returns all registered session ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
