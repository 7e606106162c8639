// Package backend is an HTTP client for the interview service's
// session endpoints. It returns raw response bodies; parsing is
// left to the record package.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wesm/interviewlens/internal/record"
)

const (
	// DefaultURL is the local development address of the
	// interview service.
	DefaultURL = "http://127.0.0.1:8000"

	// maxBody bounds a single response body.
	maxBody = 32 << 20
)

// RequestIDHeader carries a per-request id so service logs can be
// correlated with ours.
const RequestIDHeader = "X-Request-ID"

// Client fetches session payloads over HTTP. It is safe for
// concurrent use.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the service at baseURL, or DefaultURL
// when baseURL is empty. timeout bounds each request; zero means
// 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.base
}

// ListSessions calls GET /session/list with userId, or email when
// the identity has no user id.
func (c *Client) ListSessions(
	ctx context.Context, id record.Identity,
) ([]byte, error) {
	id = id.Normalize()
	q := url.Values{}
	switch {
	case id.UserID != "":
		q.Set("userId", id.UserID)
	case id.Email != "":
		q.Set("email", id.Email)
	default:
		return nil, fmt.Errorf("list sessions: no user id or email")
	}
	return c.get(ctx, "/session/list?"+q.Encode())
}

// SessionDetail calls GET /session/{id}/summary.
func (c *Client) SessionDetail(
	ctx context.Context, sessionID string,
) ([]byte, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session detail: empty session id")
	}
	return c.get(ctx,
		"/session/"+url.PathEscape(sessionID)+"/summary")
}

// Ping checks that the service answers at its root.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/")
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.base+path, nil,
	)
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "interviewlens")
	req.Header.Set(RequestIDHeader, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("GET %s: reading body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Path:      path,
			Code:      resp.StatusCode,
			Status:    resp.Status,
			RequestID: reqID,
		}
	}
	return body, nil
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Path      string
	Code      int
	Status    string
	RequestID string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %s (request %s)",
		e.Path, e.Status, e.RequestID)
}
