// Package domain defines the core entities of the hosting portal: plans,
// servers, plugins, checkout artifacts, and payment records. The remote
// hosting backend is the source of truth for all of them; the portal only
// caches and orchestrates.
package domain

import "time"

// Server lifecycle statuses. The set is open (the backend may introduce
// new values), so Status stays a plain string and these constants cover
// the states the portal itself reasons about.
const (
	StatusProvisioning = "provisioning"
	StatusCreating     = "creating"
	StatusActive       = "active"
	StatusStopped      = "stopped"
	StatusError        = "error"
)

// Plan is a hosting plan from the backend catalog. Immutable once fetched.
//
// PriceCents uses minor currency units (10000 = $100.00). A zero price
// marks the free tier and routes checkout down the direct-creation path.
type Plan struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	RAMMB      int64  `json:"ramMb"`
	FPS        int64  `json:"fps"`
}

// Free reports whether the plan routes to the free checkout path.
// Every plan with a positive price takes the paid path; no price value
// routes to both.
func (p Plan) Free() bool { return p.PriceCents == 0 }

// ShoppingItem is a denormalized cart line derived from a Plan for a
// single checkout attempt. It is built fresh per attempt and never stored.
type ShoppingItem struct {
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
	PriceInCents       int64  `json:"priceInCents"`
	Currency           string `json:"currency"`
	Quantity           int64  `json:"quantity"`
}

// CheckoutSession is the payment processor's record of an initiated
// checkout: an opaque session identifier plus the URL the browser must be
// redirected to. Created once per paid attempt and consumed immediately.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionCompleted carries the success payload of a resolved session.
type SessionCompleted struct {
	UserRef  string `json:"userRef,omitempty"`
	Response string `json:"response"`
}

// SessionFailed carries the error message of a failed session.
type SessionFailed struct {
	Error string `json:"error"`
}

// SessionStatus is the terminal classification of a CheckoutSession.
// Exactly one of Completed or Failed is set; a value with neither means
// the backend returned something the portal does not recognize and is
// treated as unresolved by callers. Absence of any status (session
// unknown) is represented by a nil *SessionStatus, never by Failed.
type SessionStatus struct {
	Completed *SessionCompleted `json:"completed,omitempty"`
	Failed    *SessionFailed    `json:"failed,omitempty"`
}

// IsCompleted reports whether the session resolved to the completed variant.
func (s *SessionStatus) IsCompleted() bool { return s != nil && s.Completed != nil }

// IsFailed reports whether the session resolved to the failed variant.
func (s *SessionStatus) IsFailed() bool { return s != nil && s.Failed != nil }

// Server is a provisioned game-server instance. Created by the creation
// operation, mutated by status updates and plugin install/remove, never
// deleted from the portal's perspective.
type Server struct {
	ID               string    `json:"id"`
	Domain           string    `json:"domain"`
	Status           string    `json:"status"`
	Owner            string    `json:"owner"`
	CreatedAt        time.Time `json:"createdAt"`
	Plan             Plan      `json:"plan"`
	InstalledPlugins []string  `json:"installedPlugins"`
}

// HasPlugin reports whether pluginID is in the server's installed set.
// Order of the set is irrelevant.
func (s *Server) HasPlugin(pluginID string) bool {
	for _, id := range s.InstalledPlugins {
		if id == pluginID {
			return true
		}
	}
	return false
}

// Plugin is a read-only catalog entry describing an installable plugin.
type Plugin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	URL         string `json:"url"`
}

// PaymentRecord is a historical payment entry owned by the backend.
type PaymentRecord struct {
	ID              string    `json:"id"`
	PlanID          string    `json:"planId"`
	User            string    `json:"user"`
	Status          string    `json:"status"`
	StripeSessionID string    `json:"stripeSessionId"`
	Amount          int64     `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
}
