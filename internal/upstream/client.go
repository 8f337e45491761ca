// Package upstream provides a read-only client for the ElevenLabs
// Conversational AI API. Responses are decoded into generic JSON maps
// because the upstream schema places equivalent data under different keys
// depending on response mode; normalization happens in internal/analytics.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrUnavailable indicates a network failure, timeout, or
	// unexpected upstream status. Callers fail the enclosing request;
	// there is no retry.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrNotFound indicates the upstream resource does not exist.
	ErrNotFound = errors.New("upstream resource not found")
)

const audioTimeout = 30 * time.Second

// API is the subset of upstream operations the dashboard consumes.
type API interface {
	ListConversations(ctx context.Context, agentID string, pageSize int, includeSummaries bool) (map[string]interface{}, error)
	GetConversation(ctx context.Context, conversationID string) (map[string]interface{}, error)
	ListAgents(ctx context.Context) (map[string]interface{}, error)
	GetAudio(ctx context.Context, conversationID string) ([]byte, string, error)
}

// Client issues authenticated GET requests against the upstream API.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	audioClient *http.Client
}

// NewClient creates an upstream client with a bounded per-call timeout.
// Audio downloads use a longer fixed timeout since payloads are larger.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		audioClient: &http.Client{Timeout: audioTimeout},
	}
}

// ListConversations fetches one page of conversations for an agent.
func (c *Client) ListConversations(ctx context.Context, agentID string, pageSize int, includeSummaries bool) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("agent_id", agentID)
	params.Set("page_size", strconv.Itoa(pageSize))
	if includeSummaries {
		params.Set("summary_mode", "include")
	}
	return c.getJSON(ctx, "/v1/convai/conversations", params)
}

// GetConversation fetches the full detail payload for one conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (map[string]interface{}, error) {
	return c.getJSON(ctx, "/v1/convai/conversations/"+url.PathEscape(conversationID), nil)
}

// ListAgents fetches the account's agent roster.
func (c *Client) ListAgents(ctx context.Context) (map[string]interface{}, error) {
	return c.getJSON(ctx, "/v1/convai/agents", nil)
}

// GetAudio downloads the recorded call audio for a conversation. Returns
// the payload and its content type.
func (c *Client) GetAudio(ctx context.Context, conversationID string) ([]byte, string, error) {
	endpoint := "/v1/convai/conversations/" + url.PathEscape(conversationID) + "/get-audio"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build audio request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.audioClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read audio body: %v", ErrUnavailable, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return data, contentType, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) (map[string]interface{}, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrUnavailable, err)
	}
	return payload, nil
}
