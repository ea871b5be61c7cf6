// Checkout orchestrator.
//
// One Orchestrator instance corresponds to one logical view of the
// dashboard. The idempotency marker lives on the instance, so two views
// (e.g. two browser tabs) never share markers. The paid path ends with a
// redirect URL handed back to the caller (the portal never follows it),
// and resolution of the return leg is a separately entered state machine
// connected to the dispatch leg only by the session identifier and the
// plan reference carried in the return URL and the session ledger.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/currency"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/cache"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// Provisioner is the slice of the backend contract the orchestrator needs.
type Provisioner interface {
	CreateServer(ctx context.Context, planID string) (*domain.Server, error)
	CreateCheckoutSession(ctx context.Context, items []domain.ShoppingItem, successURL, cancelURL string) (*domain.CheckoutSession, error)
	GetPlans(ctx context.Context) ([]domain.Plan, error)
}

// Ledger records which checkout sessions this portal has initiated and
// resolved, surviving the payment redirect's loss of in-memory state.
type Ledger interface {
	Begin(ctx context.Context, sessionID, planID string) error
	Lookup(ctx context.Context, sessionID string) (*domain.ConsumedSession, error)
	Consume(ctx context.Context, sessionID, planID, serverID string) error
	Abort(ctx context.Context, sessionID string) error
}

// StatusResolver translates a session identifier into its terminal status.
type StatusResolver interface {
	Resolve(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
}

// Outcome is the result of a dispatch or a return resolution. Exactly one
// of the variants is populated.
type Outcome struct {
	// Server is set when a server was created (free path, or completed
	// paid session).
	Server *domain.Server
	// RedirectURL is set on the paid path: the browser must navigate
	// there, and no further client-observable work happens in this leg.
	RedirectURL string
	// SessionID identifies the checkout session involved, when any.
	SessionID string
	// Duplicate marks a benign no-op: the session was already consumed
	// (locally or by backend rejection) and no new side effect occurred.
	Duplicate bool
	// PaymentFailed carries the failed variant's message. No server
	// creation was attempted and no charge was made.
	PaymentFailed string
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Provisioner Provisioner
	Store       *cache.Store
	Ledger      Ledger
	Resolver    StatusResolver
	// Origin is the portal's public origin, e.g. "https://portal.example".
	// Success/failure return URLs are derived from it.
	Origin string
	// Currency is the ISO 4217 code for shopping items; defaults to USD.
	Currency string
	Log      zerolog.Logger
}

// Orchestrator coordinates plan selection → payment → provisioning for a
// single view instance. Safe for concurrent use; the instance state is
// exactly the idempotency marker and the one-shot resolution guard.
type Orchestrator struct {
	deps     Deps
	currency string

	mu       sync.Mutex
	busy     bool
	lastPlan string
	resolved map[string]bool
}

// New constructs an Orchestrator. An unparsable currency code falls back
// to USD rather than failing the view.
func New(deps Deps) *Orchestrator {
	unit, err := currency.ParseISO(deps.Currency)
	if err != nil {
		unit = currency.USD
	}
	return &Orchestrator{
		deps:     deps,
		currency: strings.ToLower(unit.String()),
		resolved: make(map[string]bool),
	}
}

// Dispatch drives the selection of planID. Free plans are provisioned
// directly; paid plans yield a redirect URL. A second dispatch for the
// same plan while one is outstanding, or after one was already issued by
// this view, returns ErrAlreadyDispatched without any backend call.
func (o *Orchestrator) Dispatch(ctx context.Context, planID string) (*Outcome, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, ErrUnknownPlan
	}

	o.mu.Lock()
	if o.busy || o.lastPlan == planID {
		o.mu.Unlock()
		return nil, ErrAlreadyDispatched
	}
	o.busy = true
	o.lastPlan = planID
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	plan, err := o.lookupPlan(ctx, planID)
	if err != nil {
		o.clearMarker()
		return nil, err
	}

	if plan.Free() {
		return o.dispatchFree(ctx, plan)
	}
	return o.dispatchPaid(ctx, plan)
}

// Reset clears the idempotency marker, making the same plan dispatchable
// again. Called when the user navigates away from the view.
func (o *Orchestrator) Reset() {
	o.clearMarker()
}

func (o *Orchestrator) clearMarker() {
	o.mu.Lock()
	o.lastPlan = ""
	o.mu.Unlock()
}

// lookupPlan resolves planID against the cached backend catalog, falling
// back to the built-in catalog when the remote one is unavailable.
func (o *Orchestrator) lookupPlan(ctx context.Context, planID string) (domain.Plan, error) {
	plans, err := cache.Read(ctx, o.deps.Store, cache.PlansKey(), true, func(ctx context.Context) ([]domain.Plan, error) {
		return o.deps.Provisioner.GetPlans(ctx)
	})
	if err != nil {
		o.deps.Log.Warn().Err(err).Msg("plan catalog unavailable, using built-in catalog")
		plans = domain.DefaultPlans()
	}
	if plan, ok := domain.PlanByID(plans, planID); ok {
		return plan, nil
	}
	if plan, ok := domain.PlanByID(domain.DefaultPlans(), planID); ok {
		return plan, nil
	}
	return domain.Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
}

// dispatchFree provisions directly and invalidates the caller's listing.
func (o *Orchestrator) dispatchFree(ctx context.Context, plan domain.Plan) (*Outcome, error) {
	dispatches.WithLabelValues("free").Inc()

	user := backend.UserFrom(ctx)
	srv, err := cache.Mutate(ctx, o.deps.Store, []cache.Key{cache.MyServersKey(user)},
		func(ctx context.Context) (*domain.Server, error) {
			return o.deps.Provisioner.CreateServer(ctx, plan.ID)
		})
	if err != nil {
		// Clear the marker so the user can retry the same plan.
		o.clearMarker()
		return nil, fmt.Errorf("create server for plan %s: %w", plan.ID, err)
	}
	creations.Inc()
	o.deps.Log.Info().Str("plan_id", plan.ID).Str("server_id", srv.ID).Msg("free plan provisioned")
	return &Outcome{Server: srv}, nil
}

// dispatchPaid creates a checkout session and returns its redirect URL.
// The redirect is a process-level suspension: nothing after it can rely
// on in-memory state, so the plan reference is embedded in the success
// URL and persisted to the ledger before the URL is handed out.
func (o *Orchestrator) dispatchPaid(ctx context.Context, plan domain.Plan) (*Outcome, error) {
	dispatches.WithLabelValues("paid").Inc()

	items := []domain.ShoppingItem{{
		ProductName:        "Doom Hosting - " + plan.Name,
		ProductDescription: fmt.Sprintf("Game server hosting plan %s", plan.ID),
		PriceInCents:       plan.PriceCents,
		Currency:           o.currency,
		Quantity:           1,
	}}
	successURL := o.deps.Origin + "/payment-success?plan=" + url.QueryEscape(plan.ID)
	cancelURL := o.deps.Origin + "/payment-failure"

	session, err := o.deps.Provisioner.CreateCheckoutSession(ctx, items, successURL, cancelURL)
	if err != nil {
		// Malformed sessions (missing URL) and transport failures are
		// treated alike: no redirect, marker cleared for retry.
		o.clearMarker()
		return nil, fmt.Errorf("create checkout session for plan %s: %w", plan.ID, err)
	}

	if err := o.deps.Ledger.Begin(ctx, session.ID, plan.ID); err != nil {
		// The success URL still carries the plan, so a ledger miss is
		// survivable; log and continue to the redirect.
		o.deps.Log.Warn().Err(err).Str("session_id", session.ID).Msg("ledger begin failed")
	}

	o.deps.Log.Info().Str("plan_id", plan.ID).Str("session_id", session.ID).Msg("redirecting to payment")
	return &Outcome{RedirectURL: session.URL, SessionID: session.ID}, nil
}

// ResolveReturn handles a landing on the success URL. It resolves the
// session's terminal status and, when completed, issues server creation
// exactly once for this session, guarded in-process by the one-shot map
// and across processes by the ledger plus the backend's duplicate
// rejection, which is swallowed as benign.
func (o *Orchestrator) ResolveReturn(ctx context.Context, sessionID, planHint string) (*Outcome, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNoSession
	}

	o.mu.Lock()
	if o.resolved[sessionID] {
		o.mu.Unlock()
		duplicateResolutions.Inc()
		return &Outcome{SessionID: sessionID, Duplicate: true}, nil
	}
	o.resolved[sessionID] = true
	o.mu.Unlock()

	// Cross-process guard: a session this portal already consumed must not
	// provision again, even from a fresh view.
	rec, err := o.deps.Ledger.Lookup(ctx, sessionID)
	if err != nil {
		o.deps.Log.Warn().Err(err).Str("session_id", sessionID).Msg("ledger lookup failed")
	}
	if rec != nil {
		if rec.Status == domain.SessionConsumed {
			duplicateResolutions.Inc()
			return &Outcome{SessionID: sessionID, Duplicate: true}, nil
		}
		// The ledger row written at dispatch time is the authoritative plan
		// reference. The URL hint is client-controlled and only trusted when
		// no row survived the redirect.
		if rec.PlanID != "" {
			if planHint != "" && planHint != rec.PlanID {
				o.deps.Log.Warn().Str("session_id", sessionID).
					Str("plan_hint", planHint).Str("plan_id", rec.PlanID).
					Msg("plan hint disagrees with ledger, using ledger")
			}
			planHint = rec.PlanID
		}
	}

	st, err := o.deps.Resolver.Resolve(ctx, sessionID)
	if err != nil {
		o.unresolve(sessionID)
		return nil, fmt.Errorf("resolve session %s: %w", sessionID, err)
	}
	if st == nil || (!st.IsCompleted() && !st.IsFailed()) {
		// Absence never fabricates a failure; it simply cannot authorize a
		// creation. The guard is released so a later re-entry may succeed.
		o.unresolve(sessionID)
		return nil, fmt.Errorf("%w: %s", ErrSessionUnresolved, sessionID)
	}

	if st.IsFailed() {
		paymentFailures.Inc()
		if err := o.deps.Ledger.Abort(ctx, sessionID); err != nil {
			o.deps.Log.Warn().Err(err).Str("session_id", sessionID).Msg("ledger abort failed")
		}
		o.deps.Log.Info().Str("session_id", sessionID).Str("reason", st.Failed.Error).Msg("payment failed")
		// Nothing was created, so the one-shot guard is released: a revisit
		// replays the payment failure instead of claiming a duplicate.
		o.unresolve(sessionID)
		return &Outcome{SessionID: sessionID, PaymentFailed: st.Failed.Error}, nil
	}

	if planHint == "" {
		o.unresolve(sessionID)
		return nil, fmt.Errorf("%w: no plan reference for session %s", ErrSessionUnresolved, sessionID)
	}

	user := backend.UserFrom(ctx)
	srv, err := cache.Mutate(ctx, o.deps.Store, []cache.Key{cache.MyServersKey(user)},
		func(ctx context.Context) (*domain.Server, error) {
			return o.deps.Provisioner.CreateServer(ctx, planHint)
		})
	if err != nil {
		if errors.Is(err, backend.ErrConflict) {
			// The backend already provisioned for this session; record it
			// and report a benign no-op.
			duplicateResolutions.Inc()
			if lerr := o.deps.Ledger.Consume(ctx, sessionID, planHint, ""); lerr != nil {
				o.deps.Log.Warn().Err(lerr).Str("session_id", sessionID).Msg("ledger consume failed")
			}
			return &Outcome{SessionID: sessionID, Duplicate: true}, nil
		}
		// Payment completed but provisioning did not: retryable, and the
		// messaging upstream must not claim the charge was reversed.
		o.unresolve(sessionID)
		return nil, fmt.Errorf("%w: %w", ErrProvisionFailed, err)
	}

	creations.Inc()
	if err := o.deps.Ledger.Consume(ctx, sessionID, planHint, srv.ID); err != nil {
		o.deps.Log.Warn().Err(err).Str("session_id", sessionID).Msg("ledger consume failed")
	}
	o.deps.Log.Info().Str("session_id", sessionID).Str("server_id", srv.ID).Msg("paid plan provisioned")
	return &Outcome{SessionID: sessionID, Server: srv}, nil
}

// AbortReturn handles a landing on the failure URL: a terminal no-charge
// outcome. No backend calls are made; the ledger row, when present, is
// marked aborted so the session cannot provision later.
func (o *Orchestrator) AbortReturn(ctx context.Context, sessionID string) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	paymentFailures.Inc()
	if err := o.deps.Ledger.Abort(ctx, sessionID); err != nil {
		o.deps.Log.Warn().Err(err).Str("session_id", sessionID).Msg("ledger abort failed")
	}
}

// unresolve releases the one-shot guard so a retry may re-enter.
func (o *Orchestrator) unresolve(sessionID string) {
	o.mu.Lock()
	delete(o.resolved, sessionID)
	o.mu.Unlock()
}
