// Package client fetches configuration records from a running tgconfig
// server
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/api"
	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/pkg/constants"
)

// APIError is a well-formed error envelope returned by the server
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tgconfig: %s (status %d, code %d)", e.Message, e.Status, e.Code)
}

// Client talks to the server's /api endpoints
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRetry sets how many times a failed request is retried and the
// initial backoff
func WithRetry(count int, wait time.Duration) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count).SetRetryWaitTime(wait)
	}
}

// WithLogger logs retries through zap
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(constants.DefaultRequestTimeout*time.Second).
			SetRetryCount(constants.DefaultClientRetryMax).
			SetRetryWaitTime(constants.DefaultClientRetryWaitMin*time.Millisecond).
			SetRetryMaxWaitTime(2*time.Second).
			SetHeader("Accept", "application/json"),
		logger: zap.NewNop(),
	}

	// Retry transport failures and 5xx; 4xx answers are final
	c.http.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	for _, opt := range opts {
		opt(c)
	}

	c.http.AddRetryHook(func(r *resty.Response, err error) {
		fields := []zap.Field{zap.Error(err)}
		if r != nil && r.Request != nil {
			fields = append(fields, zap.String("url", r.Request.URL), zap.Int("attempt", r.Request.Attempt))
		}
		c.logger.Warn("Retrying config request", fields...)
	})

	return c
}

type envelope[T any] struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out envelope[T]
	var failure envelope[struct{}]

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&failure).
		Get(path)
	if err != nil {
		return out.Result, errors.Wrapf(err, "GET %s", path)
	}

	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: failure.Code, Message: failure.Message}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		if failure.Code == api.CodeErrorUnknownApp {
			return out.Result, errors.Wrap(config.ErrUnknownApp, apiErr.Error())
		}
		return out.Result, apiErr
	}

	if !out.OK {
		return out.Result, &APIError{Status: resp.StatusCode(), Code: out.Code, Message: out.Message}
	}
	return out.Result, nil
}

// Admin fetches the TG-Admin record
func (c *Client) Admin(ctx context.Context) (config.AdminConfig, error) {
	return get[config.AdminConfig](ctx, c, "/api/config/"+constants.AppAdmin)
}

// POS fetches the TG-WebPOS record
func (c *Client) POS(ctx context.Context) (config.PosConfig, error) {
	return get[config.PosConfig](ctx, c, "/api/config/"+constants.AppPOS)
}

// KDS fetches the TG-KDS record together with its resolved endpoints
func (c *Client) KDS(ctx context.Context) (config.KdsView, error) {
	return get[config.KdsView](ctx, c, "/api/config/"+constants.AppKDS)
}

// Health fetches the server's health report
func (c *Client) Health(ctx context.Context) (api.HealthCheck, error) {
	return get[api.HealthCheck](ctx, c, "/health")
}

// Script fetches the rendered config.js for app
func (c *Client) Script(ctx context.Context, app string) ([]byte, error) {
	path := "/" + strings.ToLower(app) + "/config.js"

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/javascript").
		Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Wrapf(config.ErrUnknownApp, "%q", app)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	}
	return resp.Body(), nil
}
