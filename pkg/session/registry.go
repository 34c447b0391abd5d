// Package session holds the per-tab session registry.
//
// The registry is a volatile cache: it starts empty on every process start and
// is never persisted. All mutation goes through Track, Patch, RecordInteraction
// and Remove, and every operation tolerates a missing tab id so that late
// results for a closed tab are simply dropped.
package session

import (
	"sync"
	"time"

	"github.com/entrhq/pagepilot/pkg/clock"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Meta is the navigation target observed when a tab finishes loading.
type Meta struct {
	URL   string
	Title string
}

// Patch lists the fields to merge into an existing session.
// Nil fields are left unchanged.
type Patch struct {
	Analysis     types.Analysis
	ContentReady *bool
	URL          *string
	Title        *string
}

// Stats summarizes the registry.
type Stats struct {
	Count             int        `json:"sessions"`
	TotalInteractions int        `json:"totalInteractions"`
	OldestStart       *time.Time `json:"oldestStart,omitempty"` // nil when the registry is empty
}

// Registry maps tab ids to their current session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[types.TabID]*types.TabSession
	clock    clock.Clock
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[types.TabID]*types.TabSession),
		clock:    clock.System{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track creates or replaces the session for tabID. A replaced session is
// discarded, never merged.
func (r *Registry) Track(tabID types.TabID, meta Meta) types.TabSession {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s := &types.TabSession{
		TabID:        tabID,
		URL:          meta.URL,
		Title:        meta.Title,
		StartTime:    now,
		LastActivity: now,
	}
	r.sessions[tabID] = s
	return snapshot(s)
}

// Patch merges fields into an existing session and bumps LastActivity.
// It returns false, changing nothing, when no session exists for tabID.
func (r *Registry) Patch(tabID types.TabID, p Patch) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[tabID]
	if !ok {
		return false
	}

	if p.Analysis != nil {
		s.Analysis = p.Analysis.Clone()
	}
	if p.ContentReady != nil {
		s.ContentReady = *p.ContentReady
	}
	if p.URL != nil {
		s.URL = *p.URL
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
	return true
}

// RecordInteraction increments the icon-activation counter. It deliberately
// leaves LastActivity alone. Missing sessions are ignored.
func (r *Registry) RecordInteraction(tabID types.TabID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[tabID]
	if !ok {
		return false
	}
	s.Interactions++
	return true
}

// Remove deletes the session for tabID. Removing an unknown id is a no-op.
func (r *Registry) Remove(tabID types.TabID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tabID)
}

// Get returns a copy of the session for tabID.
func (r *Registry) Get(tabID types.TabID) (types.TabSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[tabID]
	if !ok {
		return types.TabSession{}, false
	}
	return snapshot(s), true
}

// List returns copies of all sessions in no particular order.
// The result is never nil.
func (r *Registry) List() []types.TabSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.TabSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, snapshot(s))
	}
	return out
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stats returns the session count, the sum of interactions and the oldest
// start time. OldestStart is nil for an empty registry.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var st Stats
	for _, s := range r.sessions {
		st.Count++
		st.TotalInteractions += s.Interactions
		if st.OldestStart == nil || s.StartTime.Before(*st.OldestStart) {
			start := s.StartTime
			st.OldestStart = &start
		}
	}
	return st
}

func snapshot(s *types.TabSession) types.TabSession {
	out := *s
	out.Analysis = s.Analysis.Clone()
	return out
}
