// Package cache implements the portal's shared remote-data cache: a keyed
// store of query results with invalidation-driven staleness, request
// coalescing for concurrent identical reads, and enablement gating for
// queries whose prerequisites do not yet hold.
//
// Staleness is tracked with a per-key generation counter. Every cached
// entry remembers the generation it was fetched under; a mutation bumps
// the generations of the keys it declares, which makes dependent entries
// untrusted until refetched. This deliberately avoids any reactive
// framework semantics: a read after a successful mutation always
// observes the invalidation.
package cache

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrNotReady is returned by gated reads whose prerequisites do not hold
// (e.g. no authenticated identity yet). It means "not yet loaded", which
// is distinct from a fetch failure.
var ErrNotReady = errors.New("cache: query not ready")

// Kind names an entity class the cache can hold.
type Kind string

// Cache key kinds. Keys combine a kind with an optional argument, e.g.
// {server, "srv-1"} or {myServers, "<user>"}.
const (
	KindMyServers     Kind = "myServers"
	KindServer        Kind = "server"
	KindPlugins       Kind = "plugins"
	KindPlans         Kind = "plans"
	KindSessionStatus Kind = "sessionStatus"
	KindMyPayments    Kind = "myPayments"
)

// Key identifies one cached query result.
type Key struct {
	Kind Kind
	Arg  string
}

// String renders the key for coalescing and logs.
func (k Key) String() string {
	if k.Arg == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.Arg
}

// MyServersKey is the per-identity server listing key.
func MyServersKey(userID string) Key { return Key{Kind: KindMyServers, Arg: userID} }

// ServerKey is the single-server key.
func ServerKey(serverID string) Key { return Key{Kind: KindServer, Arg: serverID} }

// PluginsKey is the plugin catalog key.
func PluginsKey() Key { return Key{Kind: KindPlugins} }

// PlansKey is the plan catalog key.
func PlansKey() Key { return Key{Kind: KindPlans} }

// SessionStatusKey is the per-session status key.
func SessionStatusKey(sessionID string) Key { return Key{Kind: KindSessionStatus, Arg: sessionID} }

// MyPaymentsKey is the per-identity payment listing key.
func MyPaymentsKey(userID string) Key { return Key{Kind: KindMyPayments, Arg: userID} }

// entry is a cached result together with the generation it was fetched
// under. An entry whose generation lags the key's current one is stale.
type entry struct {
	val any
	gen uint64
}

// Store is the shared cache. It is the only shared mutable resource in
// the portal; all components read and write through its key contract.
// Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	gens    map[Key]uint64
	entries map[Key]entry
	group   singleflight.Group
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		gens:    make(map[Key]uint64),
		entries: make(map[Key]entry),
	}
}

// Generation returns the current generation of key. Fresh keys start at 0.
func (s *Store) Generation(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

// Invalidate bumps the generation of every given key, forcing the next
// read of each to refetch before being trusted again.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.gens[k]++
		// A fetch already in flight for this key was started under the old
		// generation; make sure the next read launches its own.
		s.group.Forget(k.String())
	}
}

// read returns the cached value when fresh, otherwise refetches.
// Concurrent reads for the same key share one in-flight fetch. Errors are
// not cached: a failed fetch leaves the key empty so the next read retries.
//
// Superseding reads for the same key may race with an invalidation; the
// entry is stored under the generation observed before the fetch, so a
// result that raced with an invalidation is immediately stale and the
// next read refetches. Last-resolved wins in the interim.
func (s *Store) read(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.fresh(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		// A coalesced caller may arrive after the flight that refreshed the
		// entry; serve the fresh value instead of fetching again.
		if v, ok := s.fresh(key); ok {
			return v, nil
		}

		s.mu.Lock()
		gen := s.gens[key]
		s.mu.Unlock()

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.entries[key] = entry{val: v, gen: gen}
		s.mu.Unlock()
		return v, nil
	})
	return v, err
}

// fresh returns the cached value when its generation is current.
func (s *Store) fresh(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.gen != s.gens[key] {
		return nil, false
	}
	return e.val, true
}

// Read returns the cached value for key when fresh, refetching otherwise.
// When enabled is false the query is inert and ErrNotReady is returned;
// the fetch function is never invoked.
func Read[T any](ctx context.Context, s *Store, key Key, enabled bool, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if !enabled {
		return zero, ErrNotReady
	}
	v, err := s.read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Mutate executes action and, on success, invalidates the declared keys.
// Mutations never coalesce; each invocation is independent.
func Mutate[T any](ctx context.Context, s *Store, invalidates []Key, action func(context.Context) (T, error)) (T, error) {
	v, err := action(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Invalidate(invalidates...)
	return v, nil
}
