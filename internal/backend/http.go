// HTTP implementation of the backend Client.
//
// The backend speaks a small JSON API. Error responses carry the usual
// {code, message} envelope; this client folds them into the package
// sentinels so callers never see raw status codes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// headerUser propagates the authenticated identity to the backend. The
// identity provider itself is out of scope; the portal only forwards what
// the edge already verified.
const headerUser = "X-User-ID"

// HTTPClient talks to the hosting backend over HTTP/JSON.
type HTTPClient struct {
	base string
	hc   *http.Client
	log  zerolog.Logger
}

// NewHTTPClient constructs a client for the backend at baseURL. A zero
// timeout defaults to 15s.
func NewHTTPClient(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
		log:  log,
	}
}

// errorEnvelope mirrors the backend's JSON error body.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs a request and decodes a 2xx JSON body into out (when non-nil).
// Non-2xx statuses are mapped onto the package sentinels.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid := UserFrom(ctx); uid != "" {
		req.Header.Set(headerUser, uid)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusErr(method, path, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusErr translates a non-2xx response into a sentinel or wrapped error.
func (c *HTTPClient) statusErr(method, path string, resp *http.Response) error {
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(raw, &env)

	c.log.Warn().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("code", env.Code).
		Msg("backend error response")

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	if env.Message != "" {
		return fmt.Errorf("%s %s: backend status %d: %s", method, path, resp.StatusCode, env.Message)
	}
	return fmt.Errorf("%s %s: backend status %d", method, path, resp.StatusCode)
}

// CreateServer implements Client.
func (c *HTTPClient) CreateServer(ctx context.Context, planID string) (*domain.Server, error) {
	var srv domain.Server
	req := struct {
		PlanID string `json:"planId"`
	}{PlanID: planID}
	if err := c.do(ctx, http.MethodPost, "/servers", req, &srv); err != nil {
		return nil, err
	}
	return &srv, nil
}

// CreateCheckoutSession implements Client. The backend responds with an
// opaque string encoding {id, url}; the session is parsed and its redirect
// URL validated here, before anyone could act on it.
func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, items []domain.ShoppingItem, successURL, cancelURL string) (*domain.CheckoutSession, error) {
	req := struct {
		Items      []domain.ShoppingItem `json:"items"`
		SuccessURL string                `json:"successUrl"`
		CancelURL  string                `json:"cancelUrl"`
	}{Items: items, SuccessURL: successURL, CancelURL: cancelURL}

	var raw string
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", req, &raw); err != nil {
		return nil, err
	}

	var session domain.CheckoutSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w: %w", ErrMalformedSession, err)
	}
	if session.URL == "" {
		return nil, ErrMalformedSession
	}
	return &session, nil
}

// GetSessionStatus implements Client.
func (c *HTTPClient) GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	var st domain.SessionStatus
	path := "/checkout/sessions/" + url.PathEscape(sessionID) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetMyServers implements Client.
func (c *HTTPClient) GetMyServers(ctx context.Context) ([]domain.Server, error) {
	var servers []domain.Server
	if err := c.do(ctx, http.MethodGet, "/servers", nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// GetServer implements Client.
func (c *HTTPClient) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	var srv domain.Server
	if err := c.do(ctx, http.MethodGet, "/servers/"+url.PathEscape(serverID), nil, &srv); err != nil {
		return nil, err
	}
	return &srv, nil
}

// GetPlugins implements Client.
func (c *HTTPClient) GetPlugins(ctx context.Context) ([]domain.Plugin, error) {
	var plugins []domain.Plugin
	if err := c.do(ctx, http.MethodGet, "/plugins", nil, &plugins); err != nil {
		return nil, err
	}
	return plugins, nil
}

// GetPlans implements Client.
func (c *HTTPClient) GetPlans(ctx context.Context) ([]domain.Plan, error) {
	var plans []domain.Plan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetMyPayments implements Client.
func (c *HTTPClient) GetMyPayments(ctx context.Context) ([]domain.PaymentRecord, error) {
	var recs []domain.PaymentRecord
	if err := c.do(ctx, http.MethodGet, "/payments", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// InstallPlugin implements Client.
func (c *HTTPClient) InstallPlugin(ctx context.Context, serverID, pluginID string) error {
	path := "/servers/" + url.PathEscape(serverID) + "/plugins/" + url.PathEscape(pluginID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// RemovePlugin implements Client.
func (c *HTTPClient) RemovePlugin(ctx context.Context, serverID, pluginID string) error {
	path := "/servers/" + url.PathEscape(serverID) + "/plugins/" + url.PathEscape(pluginID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
