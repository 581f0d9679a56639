// Package client is the HTTP transport of the community SDK. Every call runs
// through a middleware stack and comes back as an envelope.Outcome; transport
// errors never escape as plain errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/middleware"
	"github.com/godeps/community-sdk-go/pkg/telemetry"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
	userAgent      = "community-sdk-go"
)

// ErrNoBaseURL is returned by New for an empty or non-absolute base URL.
var ErrNoBaseURL = errors.New("client: absolute base url required")

// Client issues requests against one backend.
type Client struct {
	base      *url.URL
	http      *http.Client
	jar       http.CookieJar
	stack     *middleware.Stack
	logger    *slog.Logger
	userAgent string
	timeout   time.Duration
	telemetry *telemetry.Manager

	startOnce sync.Once
	startErr  error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient bases the client on a copy of hc; hc itself is never
// modified. Its Jar is kept unless WithCookieJar is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMiddleware registers extra middlewares on top of the defaults.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) {
		for _, mw := range mws {
			c.stack.Use(mw)
		}
	}
}

// WithCookieJar sets the jar holding the session cookie.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar != nil {
			c.jar = jar
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit paces calls to rps per second. Non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rl := middleware.NewRateLimit(rps, burst); rl != nil {
			c.stack.Use(rl)
		}
	}
}

// WithTelemetry records spans and metrics through mgr instead of the
// process-wide default manager.
func WithTelemetry(mgr *telemetry.Manager) Option {
	return func(c *Client) { c.telemetry = mgr }
}

// New builds a client for baseURL (DefaultBaseURL when empty). Request ids,
// logging and telemetry are always on.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoBaseURL, baseURL)
	}
	c := &Client{
		base:      base,
		http:      &http.Client{},
		stack:     middleware.NewStack(),
		logger:    slog.Default(),
		userAgent: userAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.jar != nil {
		c.http.Jar = c.jar
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.http.Timeout == 0 {
		c.http.Timeout = c.timeout
	}
	c.useDefault(middleware.NewRequestID())
	c.useDefault(middleware.NewLogging(c.logger))
	c.useDefault(middleware.NewTelemetry(c.telemetry))
	return c, nil
}

// useDefault registers mw unless an option already supplied one by that name.
func (c *Client) useDefault(mw middleware.Middleware) {
	for _, existing := range c.stack.List() {
		if existing.Name() == mw.Name() {
			return
		}
	}
	c.stack.Use(mw)
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.base.String() }

// Jar returns the cookie jar carrying the session.
func (c *Client) Jar() http.CookieJar { return c.http.Jar }

// Middlewares lists the active stack, outermost first.
func (c *Client) Middlewares() []middleware.Middleware { return c.stack.List() }

// Close stops every middleware.
func (c *Client) Close(ctx context.Context) error {
	return c.stack.Stop(ctx)
}

// Call describes one request.
type Call struct {
	Method string
	// Route is a path template such as /v1/posts/{id}; it labels logs and
	// metrics. Target defaults to Route.
	Route  string
	Target string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Header adds request headers.
	Header http.Header
}

// Do runs call through the middleware stack.
func (c *Client) Do(ctx context.Context, call Call) envelope.Outcome {
	c.startOnce.Do(func() { c.startErr = c.stack.Start(ctx) })
	if c.startErr != nil {
		return envelope.TransportFailure(fmt.Errorf("client: start middleware: %w", c.startErr))
	}

	target := call.Target
	if target == "" {
		target = call.Route
	}
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}
	req := &middleware.CallRequest{
		Method: strings.ToUpper(call.Method),
		Route:  call.Route,
		Target: target,
		Header: call.Header.Clone(),
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if call.Body != nil {
		body, err := json.Marshal(call.Body)
		if err != nil {
			return envelope.TransportFailure(fmt.Errorf("client: encode body: %w", err))
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}
	return c.run(ctx, req, envelope.Decoder{})
}

func (c *Client) run(ctx context.Context, req *middleware.CallRequest, dec envelope.Decoder) envelope.Outcome {
	resp, err := c.stack.ExecuteCall(ctx, req, func(ctx context.Context, req *middleware.CallRequest) (*middleware.CallResponse, error) {
		return c.send(ctx, req, dec)
	})
	if err != nil {
		return envelope.TransportFailure(err)
	}
	if resp == nil || resp.Outcome == nil {
		return envelope.TransportFailure(errors.New("client: no response"))
	}
	return resp.Outcome
}

func (c *Client) send(ctx context.Context, req *middleware.CallRequest, dec envelope.Decoder) (*middleware.CallResponse, error) {
	u, err := c.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()
	out := dec.DecodeResponse(hresp)
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, hresp.Body)

	return &middleware.CallResponse{
		Status:   hresp.StatusCode,
		Header:   hresp.Header.Clone(),
		Outcome:  out,
		Duration: time.Since(start),
	}, nil
}

func (c *Client) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("client: bad target %q: %w", target, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""
	if ref.RawPath != "" {
		u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.RawPath, "/")
	}
	u.RawQuery = ref.RawQuery
	return &u, nil
}

func (c *Client) Get(ctx context.Context, path string) envelope.Outcome {
	return c.Do(ctx, Call{Method: http.MethodGet, Route: path})
}

func (c *Client) Post(ctx context.Context, path string, body any) envelope.Outcome {
	return c.Do(ctx, Call{Method: http.MethodPost, Route: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) envelope.Outcome {
	return c.Do(ctx, Call{Method: http.MethodPatch, Route: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) envelope.Outcome {
	return c.Do(ctx, Call{Method: http.MethodDelete, Route: path})
}

// Expand fills {placeholders} in route with args in order, path-escaping each.
func Expand(route string, args ...any) string {
	var b strings.Builder
	i := 0
	for {
		open := strings.IndexByte(route, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(route[open:], '}')
		if end < 0 || i >= len(args) {
			break
		}
		b.WriteString(route[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(args[i])))
		route = route[open+end+1:]
		i++
	}
	b.WriteString(route)
	return b.String()
}

// ResolveURL turns an image reference returned by the backend into an
// absolute URL. Absolute and data: references pass through; empty stays empty.
func (c *Client) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "blob:") {
		return ref
	}
	u, err := c.resolve(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
