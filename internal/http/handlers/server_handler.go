// Server and catalog HTTP handlers.
//
// This file exposes the read side of the portal:
//   - GET /servers        (list the caller's servers)
//   - GET /servers/{id}   (single server detail)
//   - GET /plans          (public plan catalog)
//   - GET /payments       (the caller's payment history)
//
// All reads are served through the shared cache; identity-dependent reads
// return 401 when no identity accompanies the request.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/cache"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// ListServersResponse contains the caller's servers.
type ListServersResponse struct {
	Servers []domain.Server `json:"servers"`
}

// GetServerResponse wraps a single server detail.
type GetServerResponse struct {
	Server *domain.Server `json:"server"`
}

// ListPlansResponse contains the plan catalog.
type ListPlansResponse struct {
	Plans []domain.Plan `json:"plans"`
}

// ListPaymentsResponse contains the caller's payment records.
type ListPaymentsResponse struct {
	Payments []domain.PaymentRecord `json:"payments"`
}

// failRead translates the shared read-error taxonomy into HTTP responses.
func failRead(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, cache.ErrNotReady):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "identity required")
	case errors.Is(err, backend.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, backend.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "identity rejected by hosting backend")
	default:
		fail(c, http.StatusBadGateway, code, "hosting backend unavailable")
	}
}

// ListMyServers returns the caller's servers.
func (h *Handlers) ListMyServers(c *gin.Context) {
	servers, err := h.directory.MyServers(c.Request.Context())
	if err != nil {
		failRead(c, err, ErrCodeListFailed)
		return
	}
	if servers == nil {
		servers = []domain.Server{}
	}
	ok(c, http.StatusOK, ListServersResponse{Servers: servers})
}

// GetServer returns one server by id.
func (h *Handlers) GetServer(c *gin.Context) {
	srv, err := h.directory.Server(c.Request.Context(), c.Param("id"))
	if err != nil {
		failRead(c, err, ErrCodeListFailed)
		return
	}
	if srv == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "server not found")
		return
	}
	ok(c, http.StatusOK, GetServerResponse{Server: srv})
}

// ListPlans returns the public plan catalog.
func (h *Handlers) ListPlans(c *gin.Context) {
	plans, err := h.directory.Plans(c.Request.Context())
	if err != nil {
		failRead(c, err, ErrCodeListFailed)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	ok(c, http.StatusOK, ListPlansResponse{Plans: plans})
}

// ListPayments returns the caller's payment history.
func (h *Handlers) ListPayments(c *gin.Context) {
	payments, err := h.directory.MyPayments(c.Request.Context())
	if err != nil {
		failRead(c, err, ErrCodeListFailed)
		return
	}
	if payments == nil {
		payments = []domain.PaymentRecord{}
	}
	ok(c, http.StatusOK, ListPaymentsResponse{Payments: payments})
}
