package otpgateway

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

	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/metrics"
)

const (
	upstreamName                = "otp_gateway"
	defaultBaseURL              = "https://api.getshoutout.com/otpservice"
	defaultSource               = "ShoutDEMO"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("otp gateway api key is required")

// Client wraps the Shoutout OTP service used to verify phone numbers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	source     string
	metrics    *metrics.StorefrontMetrics
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

// WithBaseURL overrides the gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithSource sets the sender id shown on the SMS.
func WithSource(source string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(source)
		if trimmed != "" {
			c.source = trimmed
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

// WithMetrics records gateway latency and outcome.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the OTP gateway client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		source:     defaultSource,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SendRequest describes an OTP SMS.
type SendRequest struct {
	Destination string
	Content     string
}

// SendResult identifies the code that was sent.
type SendResult struct {
	ReferenceID string
}

// VerifyRequest pairs a user-entered code with the reference of the SMS.
type VerifyRequest struct {
	Code        string
	ReferenceID string
}

// VerifyResult carries the gateway status code and message of a verification.
type VerifyResult struct {
	StatusCode string
	Message    string
}

type sendPayload struct {
	Source      string      `json:"source"`
	Transport   string      `json:"transport"`
	Destination string      `json:"destination"`
	Content     sendContent `json:"content"`
}

type sendContent struct {
	SMS string `json:"sms"`
}

type verifyPayload struct {
	Code        string `json:"code"`
	ReferenceID string `json:"referenceId"`
}

// Send asks the gateway to deliver a fresh code to the destination phone.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "otp gateway not configured")
	}
	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}

	payload := sendPayload{
		Source:      c.source,
		Transport:   "sms",
		Destination: destination,
		Content:     sendContent{SMS: req.Content},
	}

	var apiResp struct {
		ReferenceID string `json:"referenceId"`
	}
	if err := c.post(ctx, "send", payload, &apiResp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiResp.ReferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "otp gateway returned no reference id")
	}

	return &SendResult{ReferenceID: apiResp.ReferenceID}, nil
}

// Verify checks a code against the reference of a previously sent SMS. The
// caller decides which status code means success.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "otp gateway not configured")
	}
	if strings.TrimSpace(req.ReferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}

	var apiResp struct {
		StatusCode json.Number `json:"statusCode"`
		Message    string      `json:"message"`
	}
	if err := c.post(ctx, "verify", verifyPayload{Code: req.Code, ReferenceID: req.ReferenceID}, &apiResp); err != nil {
		return nil, err
	}

	return &VerifyResult{StatusCode: apiResp.StatusCode.String(), Message: apiResp.Message}, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	start := time.Now()
	outcome := metrics.OutcomeFailure
	defer func() {
		c.metrics.ObserveUpstream(upstreamName, path, outcome, time.Since(start))
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal otp request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build otp request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Apikey "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to fetch, please try again")
	}
	defer func() { _ = resp.Body.Close() }()

	// The gateway answers a rejected code with a 4xx and the status in the body.
	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "otp gateway request failed")
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode otp response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		outcome = metrics.OutcomeRejected
	} else {
		outcome = metrics.OutcomeSuccess
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
