package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/caffeinepub/doom-hosting/internal/domain"
)

func newTestRegistry() (*Registry, *fakeProvisioner) {
	prov := &fakeProvisioner{}
	return NewRegistry(testDeps(prov, newFakeLedger(), &fakeResolver{})), prov
}

func TestRegistryReturnsSameOrchestratorPerView(t *testing.T) {
	r, _ := newTestRegistry()

	if r.View("v1") != r.View("v1") {
		t.Fatal("same view yielded distinct orchestrators")
	}
	if r.View("v1") == r.View("v2") {
		t.Fatal("distinct views share an orchestrator")
	}
}

func TestRegistryViewsDoNotShareMarkers(t *testing.T) {
	r, prov := newTestRegistry()
	ctx := userCtx("u1")

	if _, err := r.View("v1").Dispatch(ctx, "1"); err != nil {
		t.Fatalf("v1 dispatch: %v", err)
	}
	// The same plan from another view is an independent attempt.
	if _, err := r.View("v2").Dispatch(ctx, "1"); err != nil {
		t.Fatalf("v2 dispatch: %v", err)
	}
	if _, err := r.View("v1").Dispatch(ctx, "1"); !errors.Is(err, ErrAlreadyDispatched) {
		t.Fatalf("v1 redispatch err = %v, want ErrAlreadyDispatched", err)
	}
	if prov.createSessionCalls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", prov.createSessionCalls.Load())
	}
}

func TestRegistryForgetClearsMarker(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := userCtx("u1")

	if _, err := r.View("v1").Dispatch(ctx, domain.FreePlanID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	r.Forget("v1")
	if _, err := r.View("v1").Dispatch(ctx, domain.FreePlanID); err != nil {
		t.Fatalf("dispatch after forget: %v", err)
	}
}

func TestRegistryEvictsIdleViews(t *testing.T) {
	r, _ := newTestRegistry()

	old := r.View("stale")
	r.mu.Lock()
	r.views["stale"].lastSeen = time.Now().Add(-r.ttl - time.Minute)
	r.mu.Unlock()

	// Any lookup sweeps expired entries, including the one requested.
	if r.View("stale") == old {
		t.Fatal("idle view survived eviction")
	}
}
