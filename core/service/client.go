package service

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 30 * time.Second

	parseOrderPath = "/api/parse-order"
	transcribePath = "/api/transcribe"
)

// Client talks to the live ordering service. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type ClientOption func(*ClientOptions)

func WithBaseURL(baseURL string) ClientOption {
	return func(o *ClientOptions) {
		if baseURL != "" {
			o.BaseURL = baseURL
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the instrumented default client. The configured
// timeout is not applied to it.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *ClientOptions) { o.HTTPClient = client }
}

func NewClient(opts ...ClientOption) *Client {
	options := ClientOptions{BaseURL: DefaultBaseURL, Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return r.Method + " " + r.URL.Path
				})),
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
