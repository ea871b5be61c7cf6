// Handler wiring for the portal API.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to application services (checkout registry, server directory, plugin
// manager), and translate results into HTTP responses. Business rules such
// as idempotency markers and cache invalidation live below this layer.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caffeinepub/doom-hosting/internal/checkout"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

//
// Service contracts (context-aware)
//

// CheckoutService drives plan selection and payment-return resolution,
// keyed by a per-dashboard view identifier.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CheckoutService interface {
	// Dispatch routes planID down the free or paid checkout path for viewID.
	Dispatch(ctx context.Context, viewID, planID string) (*checkout.Outcome, error)
	// ResolveReturn resolves a success-URL landing for viewID.
	ResolveReturn(ctx context.Context, viewID, sessionID, planHint string) (*checkout.Outcome, error)
	// AbortReturn records a failure-URL landing for viewID.
	AbortReturn(ctx context.Context, viewID, sessionID string)
}

// ServerDirectory serves cached reads of servers, plans, and payments.
type ServerDirectory interface {
	MyServers(ctx context.Context) ([]domain.Server, error)
	Server(ctx context.Context, serverID string) (*domain.Server, error)
	Plans(ctx context.Context) ([]domain.Plan, error)
	MyPayments(ctx context.Context) ([]domain.PaymentRecord, error)
}

// PluginManager installs and removes plugins on provisioned servers.
type PluginManager interface {
	Catalog(ctx context.Context) ([]domain.Plugin, error)
	Install(ctx context.Context, serverID, pluginID string) error
	Remove(ctx context.Context, serverID, pluginID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for checkout, servers, plugins, and plans.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	checkoutSvc CheckoutService
	directory   ServerDirectory
	plugins     PluginManager
}

// New constructs and returns a Handlers instance bound to the given services.
func New(checkoutSvc CheckoutService, directory ServerDirectory, plugins PluginManager) *Handlers {
	return &Handlers{checkoutSvc: checkoutSvc, directory: directory, plugins: plugins}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header. It never
// touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// viewID identifies the logical dashboard view issuing the request. Two tabs
// of the same user send distinct view ids and get independent checkout
// markers. Clients that do not send one share a per-user default view.
func viewID(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader("X-View-ID")); h != "" {
		return h
	}
	return "user:" + userID(c)
}
