package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meltforce/curlcoach/internal/pose"
	"github.com/meltforce/curlcoach/internal/tracker"
)

// Update mirrors hub.Update without importing the hub package.
type Update struct {
	State  tracker.Snapshot `json:"state"`
	Events []string         `json:"events"`
}

// session mirrors the id and state fields of hub.Info.
type session struct {
	ID    string           `json:"id"`
	State tracker.Snapshot `json:"state"`
}

// Client sends trace frames to a CurlCoach server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the CurlCoach server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// retryable reports whether a response status is worth another attempt.
// A 429 means the server dropped the request, so it is always safe to resend.
// Other failures may have been applied and are only retried when idempotent.
func retryable(status int, idempotent bool) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return idempotent && status >= 500
}

// post sends body to path and decodes a wantStatus response into out.
// Retries up to c.attempts times with exponential backoff on 429. With
// idempotent set, network errors and 5xx are retried as well.
func (c *Client) post(ctx context.Context, path string, body any, wantStatus int, out any, idempotent bool) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if !idempotent {
				return fmt.Errorf("%s: %w", path, err)
			}
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == wantStatus {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decoding %s response: %w", path, err)
			}
			return nil
		}
		lastErr = fmt.Errorf("%s failed (status %d): %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
		if !retryable(resp.StatusCode, idempotent) {
			return lastErr
		}
	}

	return fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}

// CreateSession starts a server session, optionally from a saved preset.
// A retried create may leave an unused session behind; the server reaps it
// once idle.
func (c *Client) CreateSession(ctx context.Context, preset string) (string, error) {
	var s session
	if err := c.post(ctx, "/api/v1/sessions", map[string]string{"preset": preset}, http.StatusCreated, &s, true); err != nil {
		return "", err
	}
	return s.ID, nil
}

// SendFrame posts one frame to the session and returns the server's update.
// Only rate-limited frames are resent, since a frame the server may have
// counted must not be fed twice.
func (c *Client) SendFrame(ctx context.Context, sessionID string, f pose.Frame) (Update, error) {
	var u Update
	err := c.post(ctx, "/api/v1/sessions/"+sessionID+"/frames", f, http.StatusOK, &u, false)
	return u, err
}

// Stream sends lines in order. With pace set it waits between frames for
// the gaps recorded in the trace, since the server times rests on its own
// clock. onUpdate, if non-nil, sees every update.
func (c *Client) Stream(ctx context.Context, sessionID string, lines []Line, pace bool, onUpdate func(int, Update)) (Update, error) {
	var last Update
	for i, l := range lines {
		if pace && i > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(l.T.Sub(lines[i-1].T)):
			}
		}
		u, err := c.SendFrame(ctx, sessionID, l.Frame)
		if err != nil {
			return last, fmt.Errorf("trace line %d: %w", i+1, err)
		}
		last = u
		if onUpdate != nil {
			onUpdate(i+1, u)
		}
	}
	return last, nil
}
