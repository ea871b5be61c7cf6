// Package backend defines the portal's contract with the remote hosting
// backend (catalog, server store, and Stripe integration) and provides an
// HTTP implementation of it. Every other component consumes the Client
// interface; nothing outside this package speaks to the backend directly.
package backend

import (
	"context"
	"errors"

	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// Sentinel errors mapped from backend responses. Callers branch on these
// with errors.Is; everything else is a transport/availability failure.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("backend: not found")

	// ErrConflict indicates the backend rejected a duplicate side-effecting
	// request (e.g. a second server creation for an already-consumed
	// checkout session).
	ErrConflict = errors.New("backend: conflict")

	// ErrUnauthorized indicates the request carried no usable identity.
	ErrUnauthorized = errors.New("backend: unauthorized")

	// ErrMalformedSession indicates a checkout-session response that could
	// not be parsed or lacks its redirect URL. No redirect may be attempted.
	ErrMalformedSession = errors.New("backend: checkout session missing url")
)

// Client is the remote hosting backend contract. All calls are remote and
// may fail; implementations must honor the context for cancellation and be
// safe for concurrent use.
type Client interface {
	// CreateServer provisions a server for the given plan on behalf of the
	// identity carried by ctx. Safe to retry after a genuine failure; the
	// backend rejects repeats for an already-consumed paid session with
	// ErrConflict.
	CreateServer(ctx context.Context, planID string) (*domain.Server, error)

	// CreateCheckoutSession initiates a paid checkout. The returned session
	// always carries a non-empty redirect URL; a response lacking one is
	// reported as ErrMalformedSession.
	CreateCheckoutSession(ctx context.Context, items []domain.ShoppingItem, successURL, cancelURL string) (*domain.CheckoutSession, error)

	// GetSessionStatus fetches the terminal classification of a checkout
	// session. An unknown session yields ErrNotFound; absence is distinct
	// from the failed variant.
	GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error)

	// GetMyServers lists servers owned by the identity carried by ctx.
	GetMyServers(ctx context.Context) ([]domain.Server, error)

	// GetServer fetches one server, or ErrNotFound.
	GetServer(ctx context.Context, serverID string) (*domain.Server, error)

	// GetPlugins returns the read-only plugin catalog.
	GetPlugins(ctx context.Context) ([]domain.Plugin, error)

	// GetPlans returns the read-only plan catalog.
	GetPlans(ctx context.Context) ([]domain.Plan, error)

	// GetMyPayments lists payment records for the identity carried by ctx.
	GetMyPayments(ctx context.Context) ([]domain.PaymentRecord, error)

	// InstallPlugin attaches a plugin to a server. Both ids must reference
	// existing entities; the backend enforces that.
	InstallPlugin(ctx context.Context, serverID, pluginID string) error

	// RemovePlugin detaches a plugin from a server.
	RemovePlugin(ctx context.Context, serverID, pluginID string) error
}
