/*
Copyright 2025 The azrest-go Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package azrest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	azjson "github.com/llamazure/azrest-go/libaf/json"
	"github.com/llamazure/azrest-go/libaf/logging"
)

// DefaultManagementEndpoint is the default Azure Resource Manager base URL.
const DefaultManagementEndpoint = "https://management.azure.com"

// DefaultScope is the default token scope requested for management-plane
// calls.
const DefaultScope = "https://management.azure.com//.default"

// Token is a bearer token with its expiry, as returned by a Credential.
type Token struct {
	AccessToken string
	ExpiresOn   time.Time
}

// Credential is the external contract for acquiring tokens. Acquisition
// and refresh are explicitly out of scope here: the client reads the
// token once, at construction.
type Credential interface {
	GetToken(ctx context.Context, scope string) (Token, error)
}

// Config assembles the tunables a Client needs: base URL, retry counts,
// LRO polling interval/cap, batch API version, and logging style. It is
// applied to a Client with WithConfig; nothing in this module populates
// it from flags, environment or a config file.
type Config struct {
	BaseURL            string
	Retries            int
	LongRunningRetries int
	PollInterval       time.Duration
	BatchAPIVersion    string
	Logging            logging.Config
}

// DefaultConfig returns a Config with sane defaults: Azure's public
// management endpoint, three retries, a 5-second default poll interval
// (overridden per-poll by Retry-After when present), and terminal logging
// at info level.
func DefaultConfig() Config {
	return Config{
		BaseURL:            DefaultManagementEndpoint,
		Retries:            3,
		LongRunningRetries: 120,
		PollInterval:       5 * time.Second,
		Logging:            logging.Config{Style: logging.StyleTerminal, Level: logging.LevelInfo},
	}
}

// Client is the shared, long-lived session the rest of the package hangs
// off of. Its connection pool and default headers are shared across
// calls; only its header set is mutated at construction time, via
// a RoundTripper that captures the bearer token in a closure rather than
// mutating a shared header map on every request.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    *url.URL
	config     Config
	logger     *zap.Logger
	metrics    *Metrics
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying *http.Client used for the
// single round trip. Useful for tests (httptest servers) and for
// connection-level tuning (proxies, custom transports).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient.HTTPClient = hc }
}

// WithBaseURL overrides the management endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if u, err := url.Parse(baseURL); err == nil {
			c.baseURL = u
		}
	}
}

// WithLogger overrides the zap logger used for request/retry/LRO/batch
// diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics overrides the Metrics collector. See metrics.go.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithConfig applies every tunable in cfg (base URL, retries, LRO
// polling, logging style) in one call; options passed after WithConfig
// still take precedence.
func WithConfig(cfg Config) ClientOption {
	return func(c *Client) {
		c.config = cfg
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			c.baseURL = u
		}
		c.httpClient.RetryMax = cfg.Retries
		c.logger = logging.NewLogger(&cfg.Logging)
	}
}

// bearerTransport injects Authorization: Bearer <token> into every
// outgoing request without mutating any shared header map; the token is
// captured once, by value, in the closure at construction.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewClient builds a Client that authenticates with a fixed bearer token,
// captured once at construction; refresh is the credential provider's
// responsibility.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	cfg := DefaultConfig()
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing default base url: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil // diagnostics go through zap, not retryablehttp's own logger
	rc.RetryMax = cfg.Retries
	rc.HTTPClient.Transport = &bearerTransport{token: token, base: rc.HTTPClient.Transport}

	c := &Client{
		httpClient: rc,
		baseURL:    baseURL,
		config:     cfg,
		logger:     logging.NewLogger(&cfg.Logging),
		metrics:    NewMetrics(),
	}
	c.httpClient.CheckRetry = c.checkRetry
	c.httpClient.Backoff = c.backoff

	for _, opt := range opts {
		opt(c)
	}
	// A client supplied through WithHTTPClient replaces the one carrying
	// the bearer transport above; wrap it too (copying the caller's
	// *http.Client rather than modifying it).
	if _, ok := c.httpClient.HTTPClient.Transport.(*bearerTransport); !ok {
		hc := *c.httpClient.HTTPClient
		hc.Transport = &bearerTransport{token: token, base: hc.Transport}
		c.httpClient.HTTPClient = &hc
	}
	return c, nil
}

// NewClientFromCredential builds a Client by acquiring a token from cred
// for DefaultScope at construction time.
func NewClientFromCredential(ctx context.Context, cred Credential, opts ...ClientOption) (*Client, error) {
	tok, err := cred.GetToken(ctx, DefaultScope)
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}
	return NewClient(tok.AccessToken, opts...)
}

// prepare builds the *retryablehttp.Request for req: URL is baseURL+path,
// query is req's params with api-version merged in, and body (when
// present) is serialised to JSON with nulls omitted. When body is a raw
// map/slice it is serialised verbatim, same as a typed struct.
func (c *Client) prepare(ctx context.Context, method Method, path, apiVersion string, params map[string]string, body any) (*retryablehttp.Request, error) {
	u := *c.baseURL
	u.Path = joinPath(u.Path, path)

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	if apiVersion != "" {
		q.Set("api-version", apiVersion)
	}
	u.RawQuery = q.Encode()

	var bodyReader io.Reader
	if body != nil {
		data, err := azjson.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, string(method), u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	if strings.HasPrefix(rel, "/") {
		return strings.TrimSuffix(base, "/") + rel
	}
	return strings.TrimSuffix(base, "/") + "/" + rel
}

// do sends req over the retry-wrapped session and returns the raw
// response. Network-level errors are not retried; they come back wrapped
// (with %w) in retryablehttp's "giving up" error.
func (c *Client) do(req *retryablehttp.Request) (*http.Response, error) {
	c.metrics.attempts.Inc()
	return c.httpClient.Do(req)
}

// decodeBody reads and classifies resp's body. A non-2xx status is
// decoded from {"error": {...}} into an *AzureError; if that decode
// fails, an *HTTPError carrying the raw status+body is returned instead.
func decodeBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	var envelope ErrorResponse
	if len(data) > 0 && azjson.Unmarshal(data, &envelope) == nil && envelope.Error.Code != "" {
		return data, envelope.Error.AsError(resp.StatusCode)
	}
	return data, &HTTPError{StatusCode: resp.StatusCode, Body: data}
}

// decodeInto unmarshals data into a fresh T, wrapping decode failures as
// a *ValidationError.
func decodeInto[T any](data []byte) (any, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := azjson.Unmarshal(data, &v); err != nil {
		return v, &ValidationError{Underlying: err, Body: data}
	}
	return v, nil
}

// callRaw prepares and sends a single logical call — including every
// retry attempt the Retry layer performs underneath c.do — and returns
// the decoded response body as raw JSON bytes. It is the shared plumbing
// beneath Do (and so DoList's first page), Raw and CallBatch.
func (c *Client) callRaw(ctx context.Context, method Method, path, apiVersion string, params map[string]string, body any) ([]byte, error) {
	hreq, err := c.prepare(ctx, method, path, apiVersion, params, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(hreq)
	if err != nil {
		return nil, err
	}
	return decodeBody(resp)
}

// callRawAbsolute is callRaw's counterpart for URLs that must be used
// verbatim — pagination's nextLink — rather than composed against
// c.baseURL: the nextLink URL is always absolute and its own host is
// honoured, never baseURL's. (The LRO poller follows its poll location
// the same way, through pollOnce.)
func (c *Client) callRawAbsolute(ctx context.Context, method Method, absoluteURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, string(method), absoluteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeBody(resp)
}

// Raw performs a single logical call — including every retry attempt —
// and returns the raw, successfully-decoded (2xx) response body. On a
// non-2xx terminal response it returns the same typed errors Do would
// (*AzureError or *HTTPError). It exists so sibling packages that have
// their own response envelope (azgraph's Res/ResErr) can reuse this
// package's Transport/Retry pipeline without going through Do's
// generic-T decoding.
func (c *Client) Raw(ctx context.Context, method Method, path, apiVersion string, params map[string]string, body any) ([]byte, error) {
	return c.callRaw(ctx, method, path, apiVersion, params, body)
}

// Do performs req to completion — including retries — and decodes the
// response as a scalar T. It must not be used for Req[AzList[E]]; use
// DoList for that return shape (see pagination.go).
func Do[T any](ctx context.Context, c *Client, req Req[T]) (T, error) {
	var zero T
	data, err := c.callRaw(ctx, req.method, req.path, req.apiVersion, req.params, req.body)
	if err != nil {
		return zero, err
	}
	v, err := decodeInto[T](data)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
