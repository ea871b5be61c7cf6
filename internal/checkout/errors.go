// Package checkout drives a plan selection to a provisioned server with
// at most one externally visible side effect per selection. This file
// centralizes the orchestration-level error values callers branch on.
package checkout

import "errors"

var (
	// ErrAlreadyDispatched is returned when an attempt for the same plan is
	// already in flight or was previously dispatched by this view instance.
	// Exactly one checkout-session or creation call is ever issued per
	// marker value.
	ErrAlreadyDispatched = errors.New("checkout already dispatched for this plan")

	// ErrUnknownPlan is returned when the selected plan identifier resolves
	// neither against the backend catalog nor the built-in fallback.
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrNoSession is returned when a success-return carries no session
	// identifier. Resolution is impossible and no creation is attempted.
	ErrNoSession = errors.New("missing checkout session identifier")

	// ErrSessionUnresolved is returned when the session's terminal status
	// cannot be determined (absent or unrecognized). No creation happens.
	ErrSessionUnresolved = errors.New("checkout session could not be resolved")

	// ErrProvisionFailed wraps a creation failure that happened after a
	// completed payment. The charge itself succeeded; the error is local
	// and retryable.
	ErrProvisionFailed = errors.New("server provisioning failed after completed payment")
)
