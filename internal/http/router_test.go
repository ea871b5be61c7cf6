package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caffeinepub/doom-hosting/internal/config"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// fakeBackend satisfies backend.Client for routing tests.
type fakeBackend struct{}

func (fakeBackend) CreateServer(_ context.Context, planID string) (*domain.Server, error) {
	return &domain.Server{ID: "srv-" + planID, Plan: domain.Plan{ID: planID}}, nil
}

func (fakeBackend) CreateCheckoutSession(context.Context, []domain.ShoppingItem, string, string) (*domain.CheckoutSession, error) {
	return &domain.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (fakeBackend) GetSessionStatus(context.Context, string) (*domain.SessionStatus, error) {
	return &domain.SessionStatus{Completed: &domain.SessionCompleted{Response: "ok"}}, nil
}

func (fakeBackend) GetMyServers(context.Context) ([]domain.Server, error) {
	return []domain.Server{{ID: "srv-1"}}, nil
}

func (fakeBackend) GetServer(_ context.Context, id string) (*domain.Server, error) {
	return &domain.Server{ID: id}, nil
}

func (fakeBackend) GetPlugins(context.Context) ([]domain.Plugin, error) {
	return []domain.Plugin{{ID: "worldedit"}}, nil
}

func (fakeBackend) GetPlans(context.Context) ([]domain.Plan, error) {
	return domain.DefaultPlans(), nil
}

func (fakeBackend) GetMyPayments(context.Context) ([]domain.PaymentRecord, error) {
	return nil, nil
}

func (fakeBackend) InstallPlugin(context.Context, string, string) error { return nil }
func (fakeBackend) RemovePlugin(context.Context, string, string) error  { return nil }

func newTestEngine(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ConsumedSession{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		APIBasePath:  "/api/v1",
		PortalOrigin: "https://portal.test",
		Currency:     "usd",
		RateRPS:      100,
		RateBurst:    100,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	r := gin.New()
	RegisterRoutes(r, fakeBackend{}, db, cfg)
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestNoRouteEnvelope(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	if body["code"] != "not_found" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCORSWildcardByDefault(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q, want *", got)
	}
}

func TestCORSAllowlistEchoesOrigin(t *testing.T) {
	r := newTestEngine(t, func(cfg *config.Config) {
		cfg.CORS.AllowedOrigins = []string{"https://portal.test"}
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://portal.test")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.test" {
		t.Fatalf("ACAO = %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.test")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.test" {
		t.Fatal("disallowed origin echoed")
	}
}

func TestDispatchRequiresIdentity(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/dispatch", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous dispatch = %d, want 401", w.Code)
	}
}

func TestListServersEndToEnd(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("servers = %d, body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Servers []domain.Server `json:"servers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Servers) != 1 || body.Servers[0].ID != "srv-1" {
		t.Fatalf("servers = %+v", body.Servers)
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	r := newTestEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID missing")
	}
}
