package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/actionforge/actportal-cli/utils"
)

const (
	DefaultBaseURL    = "https://api.github.com"
	apiVersion        = "2022-11-28"
	defaultUserAgent  = "actportal"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 10 * time.Second
)

// ErrorType classifies a failed API call. The set is flat, not
// hierarchical; every failure maps to exactly one type.
type ErrorType string

const (
	ErrAuthentication ErrorType = "AUTHENTICATION"
	ErrPermission     ErrorType = "PERMISSION"
	ErrRateLimit      ErrorType = "RATE_LIMIT"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrValidation     ErrorType = "VALIDATION"
	ErrServerError    ErrorType = "SERVER_ERROR"
	ErrNetwork        ErrorType = "NETWORK"
	ErrUnknown        ErrorType = "UNKNOWN"
)

// ApiError is the classified failure surfaced to callers. Retryable is
// informational once the client has exhausted its retry budget.
type ApiError struct {
	Type      ErrorType
	Status    int
	Body      string
	Retryable bool
	Message   string
}

func (e *ApiError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Type, e.Status)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Type)
}

// AsApiError unwraps err into an *ApiError if it is one.
func AsApiError(err error) (*ApiError, bool) {
	apiErr, ok := err.(*ApiError)
	return apiErr, ok
}

// RetryConfig controls the client's transient-failure handling.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt,
	// so a call is attempted at most MaxRetries+1 times.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// RetryableStatuses are retried in addition to the statuses that
	// classify as RATE_LIMIT, SERVER_ERROR or NETWORK.
	RetryableStatuses []int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
	}
}

// Client is the single authenticated channel to the GitHub REST API.
// It holds only configuration and the token, no accumulated state,
// and is safe for concurrent use.
type Client struct {
	BaseURL string

	token string
	http  *http.Client
	retry RetryConfig

	// jitter is swapped out in tests for determinism
	jitter func() float64
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// NewClient creates a gateway client. An empty token is allowed; the
// client is constructed as usual and authenticated calls fail with an
// AUTHENTICATION error.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		retry:   DefaultRetryConfig(),
		jitter: func() float64 {
			// jitter factor in [0.8, 1.2)
			return 0.8 + rand.Float64()*0.4
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request issues one API call with bearer auth and uniform error
// semantics. Transient failures (rate limit, 5xx, network) are retried
// with exponential backoff and jitter; everything else propagates as a
// classified *ApiError. On success the raw response body is returned.
func (c *Client) Request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &ApiError{
				Type:    ErrValidation,
				Message: fmt.Sprintf("unable to encode request body: %v", err),
			}
		}
	}

	var lastErr *ApiError

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleepBackoff(ctx, attempt-1); err != nil {
				return nil, &ApiError{Type: ErrNetwork, Message: err.Error(), Retryable: true}
			}
			utils.LogOut.Debugf("retrying %s %s (%s attempt)\n", method, path, ordinal(attempt+1))
		}

		respBody, apiErr := c.doOnce(ctx, method, path, payload)
		if apiErr == nil {
			return respBody, nil
		}

		if !c.shouldRetry(apiErr) {
			return nil, apiErr
		}

		lastErr = apiErr
	}

	return nil, &ApiError{
		Type:      ErrUnknown,
		Status:    lastErr.Status,
		Body:      lastErr.Body,
		Retryable: false,
		Message:   fmt.Sprintf("max retries exceeded: %s", lastErr.Message),
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) ([]byte, *ApiError) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, &ApiError{Type: ErrValidation, Message: err.Error()}
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", defaultUserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// no response received at all
		return nil, &ApiError{
			Type:      ErrNetwork,
			Retryable: true,
			Message:   fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ApiError{
			Type:      ErrNetwork,
			Retryable: true,
			Message:   fmt.Sprintf("unable to read response: %v", err),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	return nil, classify(resp, respBody)
}

// classify maps a non-2xx response onto the error taxonomy.
func classify(resp *http.Response, body []byte) *ApiError {
	apiErr := &ApiError{
		Status: resp.StatusCode,
		Body:   string(body),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Type = ErrAuthentication
		apiErr.Message = "authentication failed, check your token"
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			apiErr.Type = ErrRateLimit
			apiErr.Retryable = true
			apiErr.Message = "rate limit exceeded"
		} else {
			apiErr.Type = ErrPermission
			apiErr.Message = "permission denied"
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.Type = ErrRateLimit
		apiErr.Retryable = true
		apiErr.Message = "rate limit exceeded"
	case resp.StatusCode == http.StatusNotFound:
		apiErr.Type = ErrNotFound
		apiErr.Message = "resource not found"
	case resp.StatusCode == http.StatusUnprocessableEntity:
		apiErr.Type = ErrValidation
		apiErr.Message = "request was rejected as invalid"
	case resp.StatusCode >= 500:
		apiErr.Type = ErrServerError
		apiErr.Retryable = true
		apiErr.Message = fmt.Sprintf("server error (%d)", resp.StatusCode)
	default:
		apiErr.Type = ErrUnknown
		apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	return apiErr
}

func (c *Client) shouldRetry(apiErr *ApiError) bool {
	if apiErr.Retryable {
		return true
	}
	return apiErr.Status != 0 && slices.Contains(c.retry.RetryableStatuses, apiErr.Status)
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	base := float64(c.retry.BaseDelay) * math.Pow(2, float64(attempt)) * c.jitter()
	delay := utils.Min(time.Duration(base), c.retry.MaxDelay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func ordinal(i int) string {
	suffix := "th"
	switch i % 100 {
	case 11, 12, 13:
	default:
		switch i % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", i, suffix)
}
