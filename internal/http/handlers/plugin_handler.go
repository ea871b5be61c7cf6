// Plugin HTTP handlers.
//
// This file exposes plugin catalog and attachment endpoints:
//   - GET    /plugins                           (catalog)
//   - POST   /servers/{id}/plugins/{pluginId}   (install)
//   - DELETE /servers/{id}/plugins/{pluginId}   (remove)
//
// Install and remove are independent remote mutations; the service layer
// refreshes the affected server reads after each one.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/domain"
	"github.com/caffeinepub/doom-hosting/internal/plugins"
)

// ListPluginsResponse contains the plugin catalog.
type ListPluginsResponse struct {
	Plugins []domain.Plugin `json:"plugins"`
}

// ListPlugins returns the plugin catalog for the authenticated caller.
func (h *Handlers) ListPlugins(c *gin.Context) {
	catalog, err := h.plugins.Catalog(c.Request.Context())
	if err != nil {
		failRead(c, err, ErrCodeListFailed)
		return
	}
	if catalog == nil {
		catalog = []domain.Plugin{}
	}
	ok(c, http.StatusOK, ListPluginsResponse{Plugins: catalog})
}

// InstallPlugin attaches a plugin to a server.
func (h *Handlers) InstallPlugin(c *gin.Context) {
	h.mutatePlugin(c, h.plugins.Install)
}

// RemovePlugin detaches a plugin from a server.
func (h *Handlers) RemovePlugin(c *gin.Context) {
	h.mutatePlugin(c, h.plugins.Remove)
}

func (h *Handlers) mutatePlugin(c *gin.Context, call func(ctx context.Context, serverID, pluginID string) error) {
	serverID := c.Param("id")
	pluginID := c.Param("pluginId")

	err := call(c.Request.Context(), serverID, pluginID)
	if err != nil {
		switch {
		case errors.Is(err, plugins.ErrBadReference):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "server and plugin ids are required")
		case errors.Is(err, backend.ErrNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "server or plugin not found")
		case errors.Is(err, backend.ErrConflict):
			fail(c, http.StatusConflict, ErrCodeConflict, "plugin state already as requested")
		case errors.Is(err, backend.ErrUnauthorized):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "identity rejected by hosting backend")
		default:
			fail(c, http.StatusBadGateway, ErrCodePluginFailed, "plugin change could not be applied")
		}
		return
	}
	noContent(c)
}
