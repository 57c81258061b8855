package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/metrics"
)

const (
	upstreamName                = "backend"
	defaultTimeout              = 15 * time.Second
	errorBodyReadLimit    int64 = 4096
	unreachableMessage          = "failed to fetch, please try again"
	malformedReplyMessage       = "unexpected response from backend"
)

var errBaseURLRequired = errors.New("backend base url is required")

type tokenKey struct{}

// WithBearerToken scopes the backend credential of the current user to ctx.
func WithBearerToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

// BearerTokenFromContext returns the backend credential carried by ctx, if any.
func BearerTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

type observer interface {
	ObserveUpstream(upstream, endpoint, outcome string, duration time.Duration)
}

// Client talks to the remote storefront backend. It never retries: a failed
// call is reported to the caller and local state is left untouched.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    observer
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithMetrics records per-endpoint latency and outcome.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parsing backend base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type request struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
	auth     bool
}

type errorReply struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  any    `json:"status"`
}

func (c *Client) do(ctx context.Context, req request, dest any) (err error) {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	start := c.now()
	outcome := metrics.OutcomeFailure
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveUpstream(upstreamName, req.endpoint, outcome, c.now().Sub(start))
		}
	}()

	var body io.Reader
	if req.body != nil {
		payload, marshalErr := json.Marshal(req.body)
		if marshalErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "encode backend request")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.buildURL(req.path, req.query), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.auth {
		token := BearerTokenFromContext(ctx)
		if token == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request cancelled")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, unreachableMessage)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		typed := statusError(req.endpoint, resp.StatusCode, raw)
		if typed.Code() != pkgerrors.CodeDependency {
			outcome = metrics.OutcomeRejected
		}
		return typed
	}

	outcome = metrics.OutcomeSuccess
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		outcome = metrics.OutcomeFailure
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, malformedReplyMessage)
	}
	return nil
}

// statusError maps a non-2xx backend reply to a typed error. Business
// failures keep the backend's own message so it can be shown verbatim.
func statusError(endpoint string, status int, raw []byte) *pkgerrors.Error {
	var reply errorReply
	_ = json.Unmarshal(raw, &reply)
	message := strings.TrimSpace(reply.Message)
	if message == "" {
		message = strings.TrimSpace(reply.Error)
	}

	cause := fmt.Errorf("%s: status %d: %s", endpoint, status, strings.TrimSpace(string(raw)))
	details := map[string]any{"endpoint": endpoint, "status": status}

	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, fallback(message, "session expired, please log in again"))
	case status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, cause, fallback(message, "access denied"))
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, fallback(message, "resource not found"))
	case status == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, fallback(message, "conflict detected"))
	case status == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, fallback(message, "too many requests"))
	case status >= 400 && status < 500:
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, cause, fallback(message, "request rejected")).WithDetails(details)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, unreachableMessage).WithDetails(details)
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func malformed(endpoint, reason string) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%s: %s", endpoint, reason), malformedReplyMessage)
}
