// Package servers exposes cached reads of the backend's server and
// catalog data. All reads flow through the shared cache so listings stay
// coherent with mutations elsewhere in the portal, and identity-dependent
// reads stay inert until an identity is present.
package servers

import (
	"context"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/cache"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// Reader is the slice of the backend contract the directory needs.
type Reader interface {
	GetMyServers(ctx context.Context) ([]domain.Server, error)
	GetServer(ctx context.Context, serverID string) (*domain.Server, error)
	GetPlans(ctx context.Context) ([]domain.Plan, error)
	GetMyPayments(ctx context.Context) ([]domain.PaymentRecord, error)
}

// Directory serves read queries for servers, plans, and payments.
type Directory struct {
	reader Reader
	store  *cache.Store
}

// NewDirectory constructs a Directory.
func NewDirectory(reader Reader, store *cache.Store) *Directory {
	return &Directory{reader: reader, store: store}
}

// MyServers lists the caller's servers. Inert without an identity.
func (d *Directory) MyServers(ctx context.Context) ([]domain.Server, error) {
	user := backend.UserFrom(ctx)
	return cache.Read(ctx, d.store, cache.MyServersKey(user), user != "",
		func(ctx context.Context) ([]domain.Server, error) {
			return d.reader.GetMyServers(ctx)
		})
}

// Server fetches one server by id. Inert while the id is empty.
func (d *Directory) Server(ctx context.Context, serverID string) (*domain.Server, error) {
	return cache.Read(ctx, d.store, cache.ServerKey(serverID), serverID != "",
		func(ctx context.Context) (*domain.Server, error) {
			return d.reader.GetServer(ctx, serverID)
		})
}

// Plans returns the plan catalog. The catalog is public and ungated.
func (d *Directory) Plans(ctx context.Context) ([]domain.Plan, error) {
	return cache.Read(ctx, d.store, cache.PlansKey(), true,
		func(ctx context.Context) ([]domain.Plan, error) {
			return d.reader.GetPlans(ctx)
		})
}

// MyPayments lists the caller's payment records. Inert without an identity.
func (d *Directory) MyPayments(ctx context.Context) ([]domain.PaymentRecord, error) {
	user := backend.UserFrom(ctx)
	return cache.Read(ctx, d.store, cache.MyPaymentsKey(user), user != "",
		func(ctx context.Context) ([]domain.PaymentRecord, error) {
			return d.reader.GetMyPayments(ctx)
		})
}
