// Checkout HTTP handlers.
//
// This file exposes the checkout flow endpoints:
//   - POST /checkout/dispatch   (select a plan; provision or redirect)
//   - GET  /payment/success     (landing after a completed payment redirect)
//   - GET  /payment/failure     (landing after a cancelled/failed payment)
//
// The dispatch response either carries a created server (free path) or a
// redirect URL the client must navigate to (paid path). The success landing
// resolves the session's terminal status and provisions at most once per
// session; refreshes of the landing page report a benign duplicate.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/checkout"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

//
// DTOs
//

// DispatchCheckoutRequest is the JSON payload for selecting a plan.
type DispatchCheckoutRequest struct {
	// PlanID selects the plan to check out. Required.
	PlanID string `json:"plan_id" binding:"required,min=1"`
}

// Checkout outcome statuses reported to clients.
const (
	OutcomeCreated       = "created"
	OutcomeRedirect      = "redirect"
	OutcomeDuplicate     = "duplicate"
	OutcomePaymentFailed = "payment_failed"
	OutcomeAborted       = "aborted"
)

// CheckoutOutcomeResponse is the JSON envelope for dispatch and
// payment-return results. Exactly one shape applies per status:
// "created" carries the server, "redirect" carries the redirect URL,
// "payment_failed" carries the reason, "duplicate" carries neither.
type CheckoutOutcomeResponse struct {
	Status      string         `json:"status"`
	Server      *domain.Server `json:"server,omitempty"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// PaymentFailureResponse is returned from the failure landing. The payment
// terminated with no charge; Retry and Dashboard are the paths the client
// should offer next.
type PaymentFailureResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Retry     string `json:"retry"`
	Dashboard string `json:"dashboard"`
}

func outcomeResponse(out *checkout.Outcome) CheckoutOutcomeResponse {
	resp := CheckoutOutcomeResponse{
		Server:      out.Server,
		RedirectURL: out.RedirectURL,
		SessionID:   out.SessionID,
	}
	switch {
	case out.Duplicate:
		resp.Status = OutcomeDuplicate
	case out.PaymentFailed != "":
		resp.Status = OutcomePaymentFailed
		resp.Reason = out.PaymentFailed
	case out.RedirectURL != "":
		resp.Status = OutcomeRedirect
	default:
		resp.Status = OutcomeCreated
	}
	return resp
}

//
// Handlers
//

// DispatchCheckout selects a plan for the caller's view. Free plans return
// 201 with the created server; paid plans return 200 with a redirect URL
// and make no client-observable change until the payment return.
func (h *Handlers) DispatchCheckout(c *gin.Context) {
	ctx := c.Request.Context()

	var req DispatchCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "plan_id required")
		return
	}

	out, err := h.checkoutSvc.Dispatch(ctx, viewID(c), strings.TrimSpace(req.PlanID))
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrAlreadyDispatched):
			fail(c, http.StatusConflict, ErrCodeConflict, "checkout already dispatched for this plan")
		case errors.Is(err, checkout.ErrUnknownPlan):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown plan")
		case errors.Is(err, backend.ErrUnauthorized):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "identity rejected by hosting backend")
		default:
			fail(c, http.StatusBadGateway, ErrCodeCheckoutFailed, "checkout could not be started")
		}
		return
	}

	status := http.StatusOK
	if out.Server != nil {
		status = http.StatusCreated
	}
	ok(c, status, outcomeResponse(out))
}

// PaymentSuccess handles the landing on the success URL after the payment
// redirect. It reads session_id and the plan reference carried across the
// redirect, resolves the session, and provisions at most once.
func (h *Handlers) PaymentSuccess(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := strings.TrimSpace(c.Query("session_id"))
	planHint := strings.TrimSpace(c.Query("plan"))

	out, err := h.checkoutSvc.ResolveReturn(ctx, viewID(c), sessionID, planHint)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrNoSession):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
		case errors.Is(err, checkout.ErrSessionUnresolved):
			fail(c, http.StatusBadGateway, ErrCodeSessionUnresolved, "payment status could not be confirmed; retry shortly")
		case errors.Is(err, checkout.ErrProvisionFailed):
			// The charge itself completed. The message must not suggest the
			// payment was reversed.
			fail(c, http.StatusInternalServerError, ErrCodeProvisionFailed, "payment completed but server setup failed; retry this page")
		default:
			fail(c, http.StatusBadGateway, ErrCodeSessionUnresolved, "payment status could not be confirmed; retry shortly")
		}
		return
	}

	status := http.StatusOK
	if out.Server != nil {
		status = http.StatusCreated
	}
	ok(c, status, outcomeResponse(out))
}

// PaymentFailure handles the landing on the failure URL: a terminal
// no-charge outcome. The session, when identified, is marked aborted so it
// can never provision later. The response carries retry and dashboard
// affordances; it never claims a server was created.
func (h *Handlers) PaymentFailure(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID != "" {
		h.checkoutSvc.AbortReturn(c.Request.Context(), viewID(c), sessionID)
	}
	ok(c, http.StatusOK, PaymentFailureResponse{
		Status:    OutcomeAborted,
		SessionID: sessionID,
		Retry:     "/plans",
		Dashboard: "/servers",
	})
}
