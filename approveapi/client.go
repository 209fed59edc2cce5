// Package approveapi is a minimal client for the ApproveAPI prompt service.
// It covers the single operation this service needs: creating a prompt that
// delivers a magic sign-in link to a user out-of-band.
package approveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://approve.sh"

// defaultTimeout bounds the outbound call so a stuck approval service cannot
// hold a handler indefinitely.
const defaultTimeout = 30 * time.Second

// CreatePromptRequest is the payload for POST /prompt. ApproveRedirectURL is
// sent to the service verbatim; the caller embeds the challenge in it before
// the call.
type CreatePromptRequest struct {
	User               string          `json:"user"`
	Body               string          `json:"body"`
	Title              string          `json:"title,omitempty"`
	ApproveText        string          `json:"approve_text,omitempty"`
	ApproveRedirectURL string          `json:"approve_redirect_url,omitempty"`
	ExpiresIn          float64         `json:"expires_in,omitempty"`
	Metadata           *PromptMetadata `json:"metadata,omitempty"`
}

// PromptMetadata is contextual detail shown to the user inside the prompt.
type PromptMetadata struct {
	Location  string `json:"location,omitempty"`
	Time      string `json:"time,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Browser   string `json:"browser,omitempty"`
}

// Prompt is the service's record of an accepted request. A returned Prompt
// means the service accepted the prompt for delivery, not that the user
// approved it.
type Prompt struct {
	ID        string `json:"id"`
	SentAt    int64  `json:"sent_at"`
	IsExpired bool   `json:"is_expired"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("approveapi: status %d: %s", e.Status, e.Message)
}

// Client calls the ApproveAPI REST endpoint. The API key authenticates as
// the basic-auth username, per the service's auth scheme.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the service endpoint, primarily for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client authenticating with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePrompt asks the service to deliver a prompt to req.User and returns
// once the service has accepted the request for delivery.
func (c *Client) CreatePrompt(ctx context.Context, req CreatePromptRequest) (*Prompt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding prompt request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating prompt request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.apiKey, "")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending prompt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var prompt Prompt
	if err := json.NewDecoder(resp.Body).Decode(&prompt); err != nil {
		return nil, fmt.Errorf("decoding prompt response: %w", err)
	}
	return &prompt, nil
}

// readErrorMessage extracts the service's error description, falling back to
// the raw body when it is not the documented JSON shape.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "unknown error"
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(raw))
}
