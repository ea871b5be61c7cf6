package checkout

import (
	"context"
	"sync"
	"time"
)

// viewEntry pairs a view's orchestrator with the last time it was seen.
// Evicting an idle view is the server-side analogue of navigating away:
// it clears the view's marker.
type viewEntry struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// Registry hands out one Orchestrator per logical view. Views are keyed
// by an opaque identifier the transport layer derives per dashboard
// instance. Distinct views (e.g. two tabs) get independent markers.
//
// Entries are created on demand and garbage-collected opportunistically
// during lookups after a TTL of inactivity. Safe for concurrent use.
type Registry struct {
	factory func() *Orchestrator

	mu    sync.Mutex
	views map[string]*viewEntry
	ttl   time.Duration
}

// NewRegistry constructs a Registry that builds orchestrators with the
// given deps. Views idle for 30 minutes are considered navigated away.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		factory: func() *Orchestrator { return New(deps) },
		views:   make(map[string]*viewEntry),
		ttl:     30 * time.Minute,
	}
}

// View returns the orchestrator for viewID, creating it when absent.
func (r *Registry) View(viewID string) *Orchestrator {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Opportunistic GC before touching the requested entry, so an expired
	// view is evicted even when it is the one being fetched. The map holds
	// one entry per recently active dashboard view, so a full sweep per
	// lookup is cheap.
	for id, v := range r.views {
		if now.Sub(v.lastSeen) >= r.ttl {
			delete(r.views, id)
		}
	}

	v, ok := r.views[viewID]
	if !ok {
		v = &viewEntry{orch: r.factory()}
		r.views[viewID] = v
	}
	v.lastSeen = now
	return v.orch
}

// Forget drops a view immediately, clearing its marker state. Used when
// the client signals an explicit navigation away from the dashboard.
func (r *Registry) Forget(viewID string) {
	r.mu.Lock()
	delete(r.views, viewID)
	r.mu.Unlock()
}

// Dispatch routes a plan selection to the viewID's orchestrator.
func (r *Registry) Dispatch(ctx context.Context, viewID, planID string) (*Outcome, error) {
	return r.View(viewID).Dispatch(ctx, planID)
}

// ResolveReturn routes a success-URL landing to the viewID's orchestrator.
func (r *Registry) ResolveReturn(ctx context.Context, viewID, sessionID, planHint string) (*Outcome, error) {
	return r.View(viewID).ResolveReturn(ctx, sessionID, planHint)
}

// AbortReturn routes a failure-URL landing to the viewID's orchestrator.
func (r *Registry) AbortReturn(ctx context.Context, viewID, sessionID string) {
	r.View(viewID).AbortReturn(ctx, sessionID)
}
