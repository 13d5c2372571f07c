package apiclient

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

	"golang.org/x/oauth2"

	"github.com/pace-platform/pace-admin/internal/metrics"
	"github.com/pace-platform/pace-admin/internal/utils"
)

const (
	DefaultCSRFCookie = "XSRF-TOKEN"
	DefaultCSRFHeader = "X-XSRF-TOKEN"

	maxResponseBody = 10 << 20
)

// DefaultPublicPaths are sent without a bearer token
var DefaultPublicPaths = []string{"/api/auth/*", "/api/public/*"}

// RequestEditorFn runs on every outgoing request after the built-in headers
// have been attached
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// Client is the one configured pipeline every backend call goes through.
// It is immutable once built; With derives a copy, e.g. bound to a visitor's
// token source and cookie jar.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	headers        http.Header
	tokens         oauth2.TokenSource
	publicPaths    []string
	csrfCookie     string
	csrfHeader     string
	editors        []RequestEditorFn
	onUnauthorized func(ctx context.Context)
	metrics        *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithCookieJar turns on credentials mode: cookies the backend sets are kept
// in jar and sent back, and the anti-CSRF cookie is read from it
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Jar = jar
		c.httpClient = &hc
	}
}

func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

func WithPublicPaths(patterns ...string) Option {
	return func(c *Client) {
		c.publicPaths = append([]string(nil), patterns...)
	}
}

func WithCSRF(cookieName, headerName string) Option {
	return func(c *Client) {
		c.csrfCookie = cookieName
		c.csrfHeader = headerName
	}
}

func WithRequestEditor(fn RequestEditorFn) Option {
	return func(c *Client) {
		c.editors = append(c.editors, fn)
	}
}

// WithUnauthorizedHandler is called once for every 401 response, before the
// error is returned
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		headers:     make(http.Header),
		publicPaths: DefaultPublicPaths,
		csrfCookie:  DefaultCSRFCookie,
		csrfHeader:  DefaultCSRFHeader,
	}
	c.headers.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) With(opts ...Option) *Client {
	clone := *c
	clone.headers = c.headers.Clone()
	clone.editors = append([]RequestEditorFn(nil), c.editors...)
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request describes one backend call
type Request struct {
	Op     string
	Method string
	// Path is relative to the base URL, e.g. /api/courses
	Path  string
	Query url.Values
	// JSON is encoded as the request body when non-nil
	JSON any
	// Form switches the body to multipart/form-data and wins over JSON
	Form *Multipart
	// Header overrides anything the pipeline attached
	Header http.Header
}

// Do performs r and decodes a 2xx JSON body into out (which may be nil).
// Every failure is returned as *Error.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	req, err := c.NewRequest(ctx, r)
	if err != nil {
		return Normalize(r.Op, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := "transport_error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		c.metrics.ObserveBackendCall(r.Op, outcome, time.Since(start))
		return &Error{Op: r.Op, Message: defaultMessage(r.Op), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.metrics.ObserveBackendCall(r.Op, "transport_error", time.Since(start))
		return &Error{Op: r.Op, Status: resp.StatusCode, Message: defaultMessage(r.Op), Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveBackendCall(r.Op, fmt.Sprintf("http_%dxx", resp.StatusCode/100), time.Since(start))
		apiErr := fromResponse(r.Op, resp.StatusCode, body)
		// Only a rejected bearer means the session is stale; a failed
		// login is an ordinary 401 on a public path.
		if apiErr.Unauthorized() && c.onUnauthorized != nil && req.Header.Get("Authorization") != "" {
			c.onUnauthorized(ctx)
		}
		return apiErr
	}

	c.metrics.ObserveBackendCall(r.Op, "ok", time.Since(start))

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Op:      r.Op,
			Status:  resp.StatusCode,
			Message: defaultMessage(r.Op),
			Cause:   fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// NewRequest builds the outgoing request with every interceptor applied.
// Header attachment always completes before the request can be sent.
func (c *Client) NewRequest(ctx context.Context, r Request) (*http.Request, error) {
	u := c.baseURL.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.Form != nil:
		buf, ct, err := r.Form.encode()
		if err != nil {
			return nil, fmt.Errorf("encode multipart body: %w", err)
		}
		body, contentType = buf, ct
	case r.JSON != nil:
		buf, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		body, contentType = bytes.NewReader(buf), "application/json"
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if !utils.SliceHasMatch(c.publicPaths, r.Path) {
		if tok := c.token(); tok != nil {
			tok.SetAuthHeader(req)
		}
	}

	if v := c.csrfToken(req.URL); v != "" {
		req.Header.Set(c.csrfHeader, v)
	}

	for k, vs := range r.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	for _, edit := range c.editors {
		if err := edit(ctx, req); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// A missing token is not an error here: the request simply goes out without
// an Authorization header and the backend decides.
func (c *Client) token() *oauth2.Token {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return nil
	}
	return tok
}

func (c *Client) csrfToken(u *url.URL) string {
	if c.httpClient.Jar == nil || c.csrfCookie == "" || c.csrfHeader == "" {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == c.csrfCookie {
			return cookie.Value
		}
	}
	return ""
}
