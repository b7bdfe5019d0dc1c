// Package client is a Go client for the policy and policy rule API.
//
// Every method blocks until the response arrives and honours ctx for
// cancellation. Failed calls return an *APIError, which matches ErrNotFound,
// ErrConflict, ErrValidation or ErrUnauthorized through errors.Is. Nothing
// is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/oapi-codegen/runtime"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

const apiPrefix = "/api/v1"

// Client talks to one service at Config.OrgURL.
type Client struct {
	baseURL    *url.URL
	token      string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Config.Timeout and
// Config.Tracing are not applied to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger debug-logs every request on l.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.OrgURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "policy-sdk-go/" + Version
	}

	c := &Client{
		baseURL:   base,
		token:     cfg.Token,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// endpoint resolves an API path. Each segment is styled as a simple path
// parameter, so ids cannot escape their position in the path.
func (c *Client) endpoint(segments ...string) (*url.URL, error) {
	path := apiPrefix
	for i, seg := range segments {
		if i%2 == 0 {
			path += "/" + seg
			continue
		}
		if seg == "" {
			return nil, fmt.Errorf("%w: empty id in /%s", ErrInvalidArgument, strings.Join(segments[:i], "/"))
		}
		styled, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		path += "/" + styled
	}
	u := *c.baseURL
	escaped := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	u.Path = unescaped
	u.RawPath = escaped
	return &u, nil
}

type response struct {
	header http.Header
	body   []byte
}

// do sends one request and turns non-2xx answers into *APIError.
func (c *Client) do(ctx context.Context, method string, u *url.URL, body any) (*response, error) {
	var reqBody io.Reader
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case json.RawMessage:
			raw = b
		default:
			var err error
			if raw, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("%w: marshal request body: %v", ErrInvalidArgument, err)
			}
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "SSWS "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", u.Redacted()).Msg("policy API request failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	c.logger.Debug().
		Str("method", method).
		Str("url", u.Redacted()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("policy API request")

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr v1.Error
		if len(respBody) == 0 || json.Unmarshal(respBody, &apiErr) != nil {
			return nil, newAPIError(resp.StatusCode, nil)
		}
		return nil, newAPIError(resp.StatusCode, &apiErr)
	}
	return &response{header: resp.Header, body: respBody}, nil
}

// withID returns the JSON of v with its top-level id forced to id.
func withID(v any, id string) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request body: %v", ErrInvalidArgument, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	encodedID, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	fields["id"] = encodedID
	return json.Marshal(fields)
}
