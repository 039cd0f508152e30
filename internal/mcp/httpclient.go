package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/curlcoach/internal/hub"
	"github.com/meltforce/curlcoach/internal/storage"
)

// HTTPClient implements DataSource by calling the CurlCoach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// sessions live on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
// The server resolves the user from the connection, so user IDs passed to
// the DataSource methods are ignored.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// errNotFound marks a 404 so callers can map it to their own sentinel.
type errNotFound struct{ path string }

func (e errNotFound) Error() string { return "httpclient: " + e.path + " not found" }

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound{path: path}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, _ int) ([]hub.Info, error) {
	var sessions []hub.Info
	if err := c.get(ctx, "/api/v1/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, _ int, id uuid.UUID) (hub.Info, error) {
	var info hub.Info
	err := c.get(ctx, "/api/v1/sessions/"+id.String(), &info)
	var nf errNotFound
	if errors.As(err, &nf) {
		return hub.Info{}, hub.ErrSessionNotFound
	}
	if err != nil {
		return hub.Info{}, err
	}
	return info, nil
}

func (c *HTTPClient) ListPresets(ctx context.Context, _ int) ([]storage.Preset, error) {
	var presets []storage.Preset
	if err := c.get(ctx, "/api/v1/presets", &presets); err != nil {
		return nil, err
	}
	return presets, nil
}
