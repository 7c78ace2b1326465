package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DefaultNotificationsURL is the GitHub notifications endpoint.
	DefaultNotificationsURL = "https://api.github.com/notifications"

	// DefaultUserAgent identifies this client to the notification API.
	DefaultUserAgent = "leafpulse"

	// DefaultFallbackInterval is used when the server gives no poll hint.
	DefaultFallbackInterval = 20 * time.Second

	// DefaultRequestTimeout bounds a single Check when the caller's context
	// has no deadline of its own.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxBodySize is the largest notification list we read.
	DefaultMaxBodySize int64 = 1 << 20 // 1MB
)

const (
	headerETag         = "ETag"
	headerIfNoneMatch  = "If-None-Match"
	headerPollInterval = "X-Poll-Interval"
)

// connection pooling limits; a single poller only ever talks to one host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 2
	defaultIdleConnTimeout     = 90 * time.Second
	defaultH2ReadIdleTimeout   = 30 * time.Second
	defaultH2PingTimeout       = 10 * time.Second
)

// Outcome is the result of one successful [Client.Check].
type Outcome struct {
	// Count is the number of notifications in the response. Zero for 304
	// and for any non-success status.
	Count int

	// NextInterval is how long to wait before the next check: the server's
	// X-Poll-Interval hint if one has been seen, else the fallback.
	NextInterval time.Duration

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// NotModified reports a 304 answer to a conditional request.
	NotModified bool
}

// ClientConfig configures a [Client].
type ClientConfig struct {
	// URL is the notifications endpoint. Defaults to [DefaultNotificationsURL].
	URL string

	// Token is sent as a bearer credential. Required.
	Token string

	// UserAgent defaults to [DefaultUserAgent].
	UserAgent string

	// Timeout is the per-request timeout. Defaults to [DefaultRequestTimeout].
	Timeout time.Duration

	// FallbackInterval is returned as NextInterval when no X-Poll-Interval
	// has been seen. Defaults to [DefaultFallbackInterval].
	FallbackInterval time.Duration

	// MaxBodySize limits how much of a response body is read.
	// Defaults to [DefaultMaxBodySize].
	MaxBodySize int64

	// HTTPClient overrides the pooled HTTP/2-capable client built by [NewClient].
	HTTPClient *http.Client
}

// validationState holds the cache validator and poll hint from the most
// recent response that carried them.
type validationState struct {
	validator       string
	hasValidator    bool
	pollInterval    string
	hasPollInterval bool
}

// observe records the validator and poll hint carried by h. Headers that are
// absent or empty leave the stored value untouched.
func (s *validationState) observe(h http.Header) {
	if values := h.Values(headerETag); len(values) > 0 && values[0] != "" {
		s.validator = values[0]
		s.hasValidator = true
	}
	if values := h.Values(headerPollInterval); len(values) > 0 {
		s.pollInterval = values[0]
		s.hasPollInterval = true
	}
}

// nextInterval parses the stored poll hint, falling back when there is none.
func (s *validationState) nextInterval(fallback time.Duration) (time.Duration, error) {
	if !s.hasPollInterval {
		return fallback, nil
	}
	seconds, err := strconv.ParseUint(strings.TrimSpace(s.pollInterval), 10, 32)
	if err != nil {
		return 0, &ProtocolError{
			Reason: fmt.Sprintf("%s header %q", headerPollInterval, s.pollInterval),
			Err:    ErrInvalidPollInterval,
		}
	}
	return time.Duration(seconds) * time.Second, nil
}

// Client performs conditional GETs against a notification endpoint.
//
// A Client remembers the last ETag and X-Poll-Interval it received and
// presents the ETag on the next request so the server can answer 304.
// A Client is not safe for concurrent use; it is meant to be driven by a
// single [Loop].
type Client struct {
	httpClient  *http.Client
	url         string
	token       string
	userAgent   string
	timeout     time.Duration
	fallback    time.Duration
	maxBodySize int64

	state validationState
}

// NewClient creates a [Client] with empty validation state.
//
// Unless cfg.HTTPClient is set, the client gets its own transport with
// small connection pool limits and HTTP/2 health-check pings, so a
// long-lived connection to the API is detected as dead rather than hanging.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("poller: token is required")
	}

	rawURL := cfg.URL
	if rawURL == "" {
		rawURL = DefaultNotificationsURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("poller: invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("poller: url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("poller: url host is required")
	}

	c := &Client{
		httpClient:  cfg.HTTPClient,
		url:         parsed.String(),
		token:       cfg.Token,
		userAgent:   cfg.UserAgent,
		timeout:     cfg.Timeout,
		fallback:    cfg.FallbackInterval,
		maxBodySize: cfg.MaxBodySize,
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	if c.fallback <= 0 {
		c.fallback = DefaultFallbackInterval
	}
	if c.maxBodySize <= 0 {
		c.maxBodySize = DefaultMaxBodySize
	}
	if c.httpClient == nil {
		c.httpClient, err = newHTTPClient()
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// newHTTPClient builds the pooled client used when none is supplied.
// Timeouts are applied per request via context, not on the client.
func newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}

	h2, err := http2.ConfigureTransports(transport)
	if err != nil {
		return nil, fmt.Errorf("poller: configure http2: %w", err)
	}
	h2.ReadIdleTimeout = defaultH2ReadIdleTimeout
	h2.PingTimeout = defaultH2PingTimeout

	return &http.Client{Transport: transport}, nil
}

// Check asks the endpoint for the current notification list.
//
// Validators from the response are stored before the outcome is computed,
// on any status code, so a bad body or poll hint never discards a good ETag.
// A 304 or any non-2xx status counts as zero items and the body is not
// parsed.
//
// Check returns a [*TransportError] when the request cannot be sent or the
// body cannot be read, and a [*ProtocolError] when a 2xx body is not a JSON
// array or the poll hint is not a non-negative integer.
func (c *Client) Check(ctx context.Context) (Outcome, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Outcome{}, &TransportError{Op: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.state.hasValidator {
		req.Header.Set(headerIfNoneMatch, c.state.validator)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, &TransportError{Op: "send request", Err: err}
	}
	defer func() {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize))
		_ = resp.Body.Close()
	}()

	c.state.observe(resp.Header)

	outcome := Outcome{
		StatusCode:  resp.StatusCode,
		NotModified: resp.StatusCode == http.StatusNotModified,
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		count, err := c.countItems(resp.Body)
		if err != nil {
			return outcome, err
		}
		outcome.Count = count
	}

	interval, err := c.state.nextInterval(c.fallback)
	if err != nil {
		return outcome, err
	}
	outcome.NextInterval = interval

	return outcome, nil
}

// countItems decodes body as a JSON array and returns its length.
func (c *Client) countItems(body io.Reader) (int, error) {
	data, err := io.ReadAll(io.LimitReader(body, c.maxBodySize+1))
	if err != nil {
		return 0, &TransportError{Op: "read response body", Err: err}
	}
	if int64(len(data)) > c.maxBodySize {
		return 0, &ProtocolError{
			Reason: fmt.Sprintf("body exceeds %d bytes", c.maxBodySize),
			Err:    ErrPayloadTooLarge,
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return 0, &ProtocolError{Reason: "expected JSON array, got " + typeErr.Value, Err: ErrUnsupportedPayload}
		}
		return 0, &ProtocolError{Reason: "decode response body", Err: err}
	}
	// a literal null decodes without error and leaves the slice nil
	if items == nil {
		return 0, &ProtocolError{Reason: "expected JSON array, got null", Err: ErrUnsupportedPayload}
	}

	return len(items), nil
}

// requestContext applies the client timeout unless ctx already has a deadline.
func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// URL returns the endpoint this client polls.
func (c *Client) URL() string {
	return c.url
}

// Close closes idle connections in the client's pool.
//
// Safe to call multiple times and on a nil receiver. The client remains
// usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
