// Package session resolves checkout-session identifiers into their
// terminal status. The resolver performs a single gated read per
// identifier (no polling) and never fabricates a status: an unknown
// session is reported as absence, which callers must treat differently
// from the failed variant.
package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/cache"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// StatusFetcher is the slice of the backend contract the resolver needs.
type StatusFetcher interface {
	GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
}

// Resolver fetches terminal session statuses through the shared cache, so
// repeated evaluations for the same identifier share one backend call.
type Resolver struct {
	fetcher StatusFetcher
	store   *cache.Store
	log     zerolog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(fetcher StatusFetcher, store *cache.Store, log zerolog.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, store: store, log: log}
}

// Resolve returns the terminal status of sessionID.
//
// Outcomes:
//   - (status, nil): the session resolved to the completed or failed variant.
//   - (nil, nil): the backend does not know the session. Absent, not failed.
//   - (nil, cache.ErrNotReady): sessionID is empty; the read is inert.
//   - (nil, err): transport failure; the status could not be determined.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	st, err := cache.Read(ctx, r.store, cache.SessionStatusKey(sessionID), sessionID != "",
		func(ctx context.Context) (*domain.SessionStatus, error) {
			return r.fetcher.GetSessionStatus(ctx, sessionID)
		})
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			r.log.Warn().Str("session_id", sessionID).Msg("session status absent")
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}
