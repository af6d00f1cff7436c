package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	chatPath = "/api/assistant/chat"

	// DefaultTimeout bounds one agent round trip. The agent may run several
	// backend tools per turn, so this is generous; the user can always resend.
	DefaultTimeout = 30 * time.Second
)

// NetworkError is a transport-level failure or a non-200 status. The turn did
// not produce a usable reply; the caller surfaces one localized error message.
type NetworkError struct {
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("agent: unexpected status %d", e.Status)
	}
	return "agent: request failed: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError means the backend answered 200 but the body did not decode as
// a turn response.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return "agent: malformed response: " + e.Err.Error() }

func (e *ProtocolError) Unwrap() error { return e.Err }

// Client talks to the external agent backend. One request per user turn, no
// retries: duplicate in-flight turns against the same thread are worse than
// asking the user to resend.
type Client struct {
	baseURL string
	http    *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs one turn against POST /api/assistant/chat.
func (c *Client) Send(ctx context.Context, turn TurnRequest) (*TurnResponse, error) {
	body, err := json.Marshal(turn)
	if err != nil {
		return nil, errors.Wrap(err, "encode turn request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build turn request")
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &NetworkError{Status: resp.StatusCode}
	}

	var out TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ProtocolError{Err: err}
	}

	log.Debug().
		Str("component", "agent_client").
		Str("thread_id", out.ThreadID).
		Strs("tools_called", out.ToolsCalled).
		Int("ui_actions", len(out.UIActions)).
		Dur("took", time.Since(started)).
		Msg("agent turn completed")
	return &out, nil
}
