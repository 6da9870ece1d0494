package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

var logger = log.GetLogger("Assistant")

// ErrUnavailable means the assistant service could not be reached
var ErrUnavailable = errors.New("assistant service unavailable")

// APIError is a non-2xx answer from the assistant service
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assistant %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 512

// statusFetchTries bounds retries of the idempotent status request
const statusFetchTries = 3

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Content        string `json:"content"`
	ThreadID       string `json:"thread_id"`
	IsFirstMessage bool   `json:"is_first_message"`
}

// ChatResponse is the reply of POST /chat
type ChatResponse struct {
	Content string `json:"content"`
}

// Config configures the client
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the remote assistant API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics

	// retry backoff for status fetches; replaced in tests
	newBackOff func() backoff.BackOff
}

// NewClient creates a client for the assistant API at cfg.BaseURL
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// SendChat forwards one chat message and returns the assistant's reply.
// It is never retried: the remote conversation advances on every call.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	data, err := c.do(ctx, http.MethodPost, "/chat", nil, body)
	if err != nil {
		return "", err
	}

	var resp ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode chat reply: %w", err)
	}

	logger.Debug().
		Str("thread", req.ThreadID).
		Bool("first", req.IsFirstMessage).
		Int("replyLen", len(resp.Content)).
		Msg("chat reply received")

	return resp.Content, nil
}

// FetchStatus retrieves the status snapshot. Transport errors and 5xx answers
// are retried with exponential backoff; 4xx answers are final.
func (c *Client) FetchStatus(ctx context.Context, threadID string) (status.Snapshot, error) {
	query := url.Values{}
	if threadID != "" {
		query.Set("thread_id", threadID)
	}

	op := func() (status.Snapshot, error) {
		data, err := c.do(ctx, http.MethodGet, "/status", query, nil)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
				return status.Snapshot{}, backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return status.Snapshot{}, backoff.Permanent(err)
			}
			logger.Debug().Err(err).Msg("status fetch failed, retrying")
			return status.Snapshot{}, err
		}

		var snap status.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return status.Snapshot{}, backoff.Permanent(fmt.Errorf("%w: %v", status.ErrInvalidSnapshot, err))
		}
		return snap, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(statusFetchTries),
	)
}

// Fetch implements status.Source
func (c *Client) Fetch(ctx context.Context, threadID string) (status.Snapshot, error) {
	return c.FetchStatus(ctx, threadID)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	fullURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "project-chat")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.AssistantRequest(endpoint, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}
