package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/domain"
	"github.com/caffeinepub/doom-hosting/internal/plugins"
)

func newPluginRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/plugins", h.ListPlugins)
	r.POST("/servers/:id/plugins/:pluginId", h.InstallPlugin)
	r.DELETE("/servers/:id/plugins/:pluginId", h.RemovePlugin)
	return r
}

func TestListPlugins_OK(t *testing.T) {
	mgr := stubPluginMgr{catalog: func(context.Context) ([]domain.Plugin, error) {
		return []domain.Plugin{{ID: "worldedit", Name: "WorldEdit"}}, nil
	}}
	r := newPluginRouter(New(stubCheckoutSvc{}, stubDirectory{}, mgr))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plugins", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListPluginsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Plugins) != 1 || resp.Plugins[0].ID != "worldedit" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestInstallPlugin_Success204(t *testing.T) {
	var got struct{ server, plugin string }
	mgr := stubPluginMgr{install: func(_ context.Context, serverID, pluginID string) error {
		got.server = serverID
		got.plugin = pluginID
		return nil
	}}
	r := newPluginRouter(New(stubCheckoutSvc{}, stubDirectory{}, mgr))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/servers/srv-1/plugins/worldedit", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatal("expected empty body for 204")
	}
	if got.server != "srv-1" || got.plugin != "worldedit" {
		t.Fatalf("args mismatch: %+v", got)
	}
}

func TestInstallPlugin_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"bad_reference", plugins.ErrBadReference, http.StatusBadRequest},
		{"not_found", backend.ErrNotFound, http.StatusNotFound},
		{"conflict", backend.ErrConflict, http.StatusConflict},
		{"unauthorized", backend.ErrUnauthorized, http.StatusUnauthorized},
		{"upstream", errors.New("backend down"), http.StatusBadGateway},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mgr := stubPluginMgr{install: func(context.Context, string, string) error {
				return tc.err
			}}
			r := newPluginRouter(New(stubCheckoutSvc{}, stubDirectory{}, mgr))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/servers/srv-1/plugins/p1", nil))

			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code == "" || er.Message == "" {
				t.Fatalf("error envelope missing fields: %+v", er)
			}
		})
	}
}

func TestRemovePlugin_Success204(t *testing.T) {
	removed := false
	mgr := stubPluginMgr{remove: func(context.Context, string, string) error {
		removed = true
		return nil
	}}
	r := newPluginRouter(New(stubCheckoutSvc{}, stubDirectory{}, mgr))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/servers/srv-1/plugins/worldedit", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if !removed {
		t.Fatal("remove was not delegated to the manager")
	}
}
