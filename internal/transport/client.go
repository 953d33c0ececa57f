// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/auth"
	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/rs/zerolog"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultResumeTimeout bounds the wait for the first byte of a resumed stream.
	DefaultResumeTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds non-streaming JSON requests.
	DefaultRequestTimeout = 30 * time.Second

	// MaxResponseSize caps JSON response bodies (10MB).
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "rigchat/1.0"
)

// sharedStreamingClient is reused across streaming requests. It has no
// client-level timeout: stream lifetime is controlled via context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend.
type Client struct {
	baseURL        string
	tokens         auth.Provider
	streamClient   *http.Client
	jsonClient     *http.Client
	resumeTimeout  time.Duration
	requestTimeout time.Duration
	log            zerolog.Logger
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, tokens auth.Provider, log zerolog.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokens:         tokens,
		streamClient:   sharedStreamingClient,
		jsonClient:     sharedStreamingClient,
		resumeTimeout:  DefaultResumeTimeout,
		requestTimeout: DefaultRequestTimeout,
		log:            log.With().Str("component", "transport").Logger(),
	}
}

// WithHTTPClient sets the HTTP client for all requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.streamClient = hc
	c.jsonClient = hc
	return c
}

// WithResumeTimeout sets the first-byte timeout for resumed streams.
func (c *Client) WithResumeTimeout(d time.Duration) *Client {
	if d > 0 {
		c.resumeTimeout = d
	}
	return c
}

// WithRequestTimeout sets the timeout for history and chat list requests.
func (c *Client) WithRequestTimeout(d time.Duration) *Client {
	if d > 0 {
		c.requestTimeout = d
	}
	return c
}

// BaseURL returns the API base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(parts ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

type chatMessageBody struct {
	ChatMessage string `json:"chatMessage"`
}

// =============================================================================
// STREAMING
// =============================================================================

// OpenChatStream sends a user message and returns the response stream.
// An empty chatID starts a new chat for the current user.
func (c *Client) OpenChatStream(ctx context.Context, message, chatID string) (io.ReadCloser, error) {
	body := chatMessageBody{ChatMessage: message}
	if chatID == "" {
		userID, err := c.tokens.UserID(ctx)
		if err != nil {
			return nil, fmt.Errorf("open chat stream: %w", err)
		}
		return c.openStream(ctx, http.MethodPost, c.endpoint("streaming", "chats", "users", userID), body)
	}
	return c.openStream(ctx, http.MethodPut, c.endpoint("streaming", "chats", chatID), body)
}

// OpenElicitationResumeStream posts an elicitation response and returns the
// resumed stream. If no data arrives within the resume timeout the request
// is aborted and ErrFirstByteTimeout is returned, either from this call or
// from the first Read on the returned body.
func (c *Client) OpenElicitationResumeStream(ctx context.Context, resp elicitation.Response, chatID, elicitationID string) (io.ReadCloser, error) {
	if chatID == "" || elicitationID == "" {
		return nil, fmt.Errorf("elicitation resume: %w", ErrMissingID)
	}
	url := c.endpoint("streaming", "chats", chatID, elicitationID, "elicitation-response")

	ctx, cancel := context.WithCancel(ctx)
	fb := newFirstByteReader(c.resumeTimeout, cancel)

	body, err := c.openStream(ctx, http.MethodPost, url, resp)
	if err != nil {
		fb.stop()
		if fb.expired() {
			c.log.Warn().Str("url", url).Dur("timeout", c.resumeTimeout).Msg("resume stream timed out")
			return nil, fmt.Errorf("elicitation resume: %w", ErrFirstByteTimeout)
		}
		return nil, err
	}
	fb.rc = body
	return fb, nil
}

func (c *Client) openStream(ctx context.Context, method, url string, payload any) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, fmt.Errorf("%s %s: %w", method, url, ErrNoBody)
	}

	c.log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("stream opened")
	return resp.Body, nil
}

// =============================================================================
// JSON REQUESTS
// =============================================================================

// HistoryMessage is one persisted message of a chat.
type HistoryMessage struct {
	ID          string `json:"id"`
	MessageType string `json:"messageType"`
	Message     string `json:"message"`
	Model       string `json:"model,omitempty"`
}

// ChatDetails is a chat with its persisted messages.
type ChatDetails struct {
	ID           string           `json:"id,omitempty"`
	Title        string           `json:"title,omitempty"`
	ChatMessages []HistoryMessage `json:"chatMessages"`
}

// ChatSummary is one entry of the user's chat list.
type ChatSummary struct {
	ID           string           `json:"id"`
	Title        string           `json:"title,omitempty"`
	UpdatedAt    string           `json:"updatedAt,omitempty"`
	ChatMessages []HistoryMessage `json:"chatMessages,omitempty"`
}

// Label returns a short human-readable name for the chat.
func (s ChatSummary) Label() string {
	if s.Title != "" {
		return s.Title
	}
	for _, m := range s.ChatMessages {
		if strings.EqualFold(m.MessageType, "USER") && strings.TrimSpace(m.Message) != "" {
			return strings.TrimSpace(m.Message)
		}
	}
	return s.ID
}

// FetchChatHistory loads the persisted messages of a chat.
func (c *Client) FetchChatHistory(ctx context.Context, chatID string) (*ChatDetails, error) {
	if chatID == "" {
		return nil, fmt.Errorf("fetch history: %w", ErrMissingID)
	}
	var details ChatDetails
	if err := c.getJSON(ctx, c.endpoint("chats", chatID), &details); err != nil {
		return nil, err
	}
	if details.ID == "" {
		details.ID = chatID
	}
	return &details, nil
}

// ListChats returns the current user's chats. The backend may answer with a
// bare array or with an object holding a "chats" array.
func (c *Client) ListChats(ctx context.Context) ([]ChatSummary, error) {
	userID, err := c.tokens.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.endpoint("chats", "users", userID), &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var chats []ChatSummary
		if err := json.Unmarshal(trimmed, &chats); err != nil {
			return nil, fmt.Errorf("decode chat list: %w", err)
		}
		return chats, nil
	}
	var wrapped struct {
		Chats []ChatSummary `json:"chats"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode chat list: %w", err)
	}
	return wrapped.Chats, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.jsonClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", url, err)
	}
	if len(body) > MaxResponseSize {
		return fmt.Errorf("GET %s: response exceeds %d bytes", url, MaxResponseSize)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", url, err)
	}

	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("latency", time.Since(start)).
		Msg("request complete")
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{
		Method: resp.Request.Method,
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
	c.log.Warn().
		Str("method", apiErr.Method).
		Str("url", apiErr.URL).
		Int("status", apiErr.Status).
		Msg("request failed")
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.tokens.OnAuthError(apiErr)
	}
	return apiErr
}
