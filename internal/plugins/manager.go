// Package plugins manages plugin attachment on provisioned servers.
// Install and remove are independent remote mutations, with no
// client-side queuing, and each one invalidates both the single-server
// key and the per-identity listing key, because installed-plugin
// membership is part of the Server entity. The backend is the authority
// on membership; last-resolved refetch wins.
package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/caffeinepub/doom-hosting/internal/backend"
	"github.com/caffeinepub/doom-hosting/internal/cache"
	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// ErrBadReference is returned when a server or plugin identifier is empty.
// Existence of non-empty identifiers is enforced by the backend.
var ErrBadReference = errors.New("plugins: server and plugin ids are required")

// Attacher is the slice of the backend contract the manager needs.
type Attacher interface {
	GetPlugins(ctx context.Context) ([]domain.Plugin, error)
	InstallPlugin(ctx context.Context, serverID, pluginID string) error
	RemovePlugin(ctx context.Context, serverID, pluginID string) error
}

// Manager installs and removes plugins and keeps the shared cache
// coherent with the backend's server records.
type Manager struct {
	attacher Attacher
	store    *cache.Store
	log      zerolog.Logger
}

// NewManager constructs a Manager.
func NewManager(attacher Attacher, store *cache.Store, log zerolog.Logger) *Manager {
	return &Manager{attacher: attacher, store: store, log: log}
}

// Catalog returns the plugin catalog through the cache, gated on identity.
func (m *Manager) Catalog(ctx context.Context) ([]domain.Plugin, error) {
	return cache.Read(ctx, m.store, cache.PluginsKey(), backend.UserFrom(ctx) != "",
		func(ctx context.Context) ([]domain.Plugin, error) {
			return m.attacher.GetPlugins(ctx)
		})
}

// Install attaches pluginID to serverID, invalidating the server's detail
// key and the caller's server listing on success.
func (m *Manager) Install(ctx context.Context, serverID, pluginID string) error {
	return m.mutate(ctx, serverID, pluginID, "install", m.attacher.InstallPlugin)
}

// Remove detaches pluginID from serverID with the symmetric invalidation.
func (m *Manager) Remove(ctx context.Context, serverID, pluginID string) error {
	return m.mutate(ctx, serverID, pluginID, "remove", m.attacher.RemovePlugin)
}

func (m *Manager) mutate(ctx context.Context, serverID, pluginID, op string, call func(context.Context, string, string) error) error {
	if serverID == "" || pluginID == "" {
		return ErrBadReference
	}
	invalidates := []cache.Key{
		cache.ServerKey(serverID),
		cache.MyServersKey(backend.UserFrom(ctx)),
	}
	_, err := cache.Mutate(ctx, m.store, invalidates, func(ctx context.Context) (struct{}, error) {
		if err := call(ctx, serverID, pluginID); err != nil {
			return struct{}{}, fmt.Errorf("%s plugin %s on %s: %w", op, pluginID, serverID, err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		m.log.Warn().Err(err).Str("server_id", serverID).Str("plugin_id", pluginID).Msg("plugin mutation failed")
		return err
	}
	m.log.Info().Str("server_id", serverID).Str("plugin_id", pluginID).Str("op", op).Msg("plugin set updated")
	return nil
}
