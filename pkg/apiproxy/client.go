// Package apiproxy forwards requests from the extension to the remote
// content-analysis backend.
//
// The client is stateless. Every call returns a types.APIResult; failures are
// reported inside the result instead of as Go errors so the router can relay
// them verbatim.
package apiproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
)

const (
	// DefaultBaseURL is the backend used when none is configured.
	DefaultBaseURL = "http://localhost:3000/api"

	// DefaultUserID is sent as X-User-Id when none is configured.
	DefaultUserID = "extension-user"

	// DefaultSummaryMaxLength bounds summaries requested from the context menu.
	DefaultSummaryMaxLength = 200

	// DefaultTimeout is the HTTP client timeout applied by New.
	DefaultTimeout = 30 * time.Second

	// SummarizeEndpoint is the backend path for page summaries.
	SummarizeEndpoint = "/summarize"
)

// Client proxies requests to the backend.
type Client struct {
	baseURL          string
	userID           string
	summaryMaxLength int
	httpClient       *http.Client
	logger           *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its Timeout is the only deadline
// applied to proxied calls apart from the caller's context.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserID sets the X-User-Id header sent with summary requests.
func WithUserID(id string) Option {
	return func(c *Client) {
		c.userID = id
	}
}

// WithSummaryMaxLength sets options.maxLength of summary requests.
func WithSummaryMaxLength(n int) Option {
	return func(c *Client) {
		c.summaryMaxLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		userID:           DefaultUserID,
		summaryMaxLength: DefaultSummaryMaxLength,
		httpClient:       &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req against the backend.
//
// The result is successful only when the round trip completes with a 2xx
// status. A non-2xx response takes its error text from the body's "error"
// string, falling back to types.DefaultRemoteError. Transport failures,
// including an unparseable response body, leave Status at zero.
func (c *Client) Do(ctx context.Context, req types.APIRequest) types.APIResult {
	status, data, err := c.do(ctx, req)
	if err != nil {
		var remote *types.RemoteError
		if errors.As(err, &remote) {
			c.logger.Warnf("%s %s returned %d: %s", methodOf(req), req.Endpoint, remote.Status, remote.Message)
			return types.APIResult{Success: false, Data: data, Error: remote.Message, Status: remote.Status}
		}
		c.logger.Errorf("%s %s failed: %v", methodOf(req), req.Endpoint, err)
		return types.APIResult{Success: false, Error: err.Error()}
	}
	return types.APIResult{Success: true, Data: data, Status: status}
}

func (c *Client) do(ctx context.Context, req types.APIRequest) (int, json.RawMessage, error) {
	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, &types.TransportError{Op: "build", Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, methodOf(req), c.baseURL+req.Endpoint, body)
	if err != nil {
		return 0, nil, &types.TransportError{Op: "build", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debugf("proxying %s %s", httpReq.Method, httpReq.URL)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, &types.TransportError{Op: "send", Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &types.TransportError{Op: "read", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	// An empty body is not JSON either.
	if !json.Valid(raw) {
		return 0, nil, &types.TransportError{Op: "decode", Err: fmt.Errorf("failed to parse response body (status %d)", resp.StatusCode)}
	}
	data := json.RawMessage(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, data, &types.RemoteError{Status: resp.StatusCode, Message: remoteMessage(data)}
	}
	return resp.StatusCode, data, nil
}

// remoteMessage returns the body's "error" string or the default text.
func remoteMessage(data json.RawMessage) string {
	var body struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return types.DefaultRemoteError
	}
	if s, ok := body.Error.(string); ok && s != "" {
		return s
	}
	return types.DefaultRemoteError
}

func methodOf(req types.APIRequest) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(req.Method)
}

// SummarizeOptions is the options object of a summary request.
type SummarizeOptions struct {
	MaxLength int `json:"maxLength"`
}

// SummarizeBody is the JSON body posted to the summarize endpoint.
type SummarizeBody struct {
	URL     string           `json:"url"`
	Options SummarizeOptions `json:"options"`
}

// SummarizeRequest builds the request issued by the "Summarize this page"
// command.
func (c *Client) SummarizeRequest(pageURL string) types.APIRequest {
	return types.APIRequest{
		Endpoint: SummarizeEndpoint,
		Method:   http.MethodPost,
		Body: SummarizeBody{
			URL:     pageURL,
			Options: SummarizeOptions{MaxLength: c.summaryMaxLength},
		},
		Headers: map[string]string{"X-User-Id": c.userID},
	}
}

// Summarize asks the backend to summarize pageURL.
func (c *Client) Summarize(ctx context.Context, pageURL string) types.APIResult {
	return c.Do(ctx, c.SummarizeRequest(pageURL))
}
