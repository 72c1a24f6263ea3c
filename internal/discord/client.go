// Package discord is a thin client for the Discord REST API. It performs no
// retries of its own: failures are classified into an APIError and rate limit
// responses carry the wait hint for the caller.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultAPIBase    = "https://discord.com/api/v10"
	DefaultCDNBase    = "https://cdn.discordapp.com"
	DefaultRetryAfter = 5 * time.Second
	defaultUserAgent  = "DiscordBot (https://github.com/sumire/guildcloner, 1.0)"
)

// Config holds client settings.
type Config struct {
	APIBase           string
	CDNBase           string
	Token             string
	Timeout           time.Duration
	DefaultRetryAfter time.Duration
	UserAgent         string
	Debug             bool
}

// Client executes requests against the Discord REST API with one credential.
type Client struct {
	api        *resty.Client
	cdn        *resty.Client
	retryAfter time.Duration
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.CDNBase == "" {
		cfg.CDNBase = DefaultCDNBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultRetryAfter == 0 {
		cfg.DefaultRetryAfter = DefaultRetryAfter
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	api := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", authorization(cfg.Token))

	cdn := resty.New().
		SetBaseURL(strings.TrimRight(cfg.CDNBase, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent)

	if cfg.Debug {
		api.SetDebug(true)
	}

	return &Client{api: api, cdn: cdn, retryAfter: cfg.DefaultRetryAfter}
}

// authorization normalizes a credential into an Authorization header value.
// Bare tokens are bot tokens; user tokens are not supported.
func authorization(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "Bot ") || strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bot " + token
}

// Request performs one API call. A non-nil body is sent as JSON and a
// successful response is decoded into out when out is non-nil.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	req := c.api.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &APIError{Kind: KindUnknown, Method: method, Path: path, Err: err}
	}

	if !resp.IsSuccess() {
		return c.responseError(method, path, resp)
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &APIError{Kind: KindUnknown, Method: method, Path: path, Status: resp.StatusCode(),
			Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type errorBody struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	RetryAfter *float64 `json:"retry_after"`
	Global     bool     `json:"global"`
}

func (c *Client) responseError(method, path string, resp *resty.Response) *APIError {
	apiErr := &APIError{
		Kind:   kindForStatus(resp.StatusCode()),
		Method: method,
		Path:   path,
		Status: resp.StatusCode(),
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = truncate(string(resp.Body()), 256)
	}

	if apiErr.Kind == KindRateLimited {
		apiErr.RetryAfter = c.parseRetryAfter(resp.Header().Get("Retry-After"), body.RetryAfter)
	}
	return apiErr
}

// parseRetryAfter prefers the body value (fractional seconds) over the
// header, and falls back to the configured default when neither parses.
func (c *Client) parseRetryAfter(header string, body *float64) time.Duration {
	if body != nil && *body > 0 {
		return secondsToDuration(*body)
	}
	if header != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(header), 64); err == nil && secs > 0 {
			return secondsToDuration(secs)
		}
	}
	return c.retryAfter
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(math.Ceil(secs * float64(time.Second)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
