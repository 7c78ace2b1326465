// Package nanoleaf is a small client for the Nanoleaf OpenAPI.
//
// It covers what leafpulse needs from a light panel: reading the device
// description, switching power, reading the selected effect and writing
// temporary effects. [Alerter] adapts a [Client] to the alert sink used by
// the polling loop.
package nanoleaf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the port Nanoleaf controllers listen on.
	DefaultPort = 16021

	// DefaultTimeout bounds a device request when the caller has no deadline.
	DefaultTimeout = 5 * time.Second

	maxResponseBodySize = 1 << 20 // 1MB
)

// StatusError reports a non-2xx answer from the device.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nanoleaf: %s: unexpected status %d", e.Op, e.StatusCode)
}

// Config configures a [Client].
type Config struct {
	// Host is the controller's hostname or IP address. Required.
	Host string

	// Port defaults to [DefaultPort].
	Port int

	// Token is the auth token issued by the controller. Required.
	Token string

	// Timeout defaults to [DefaultTimeout].
	Timeout time.Duration

	// HTTPClient defaults to a client with no global timeout.
	HTTPClient *http.Client
}

// Client talks to one Nanoleaf controller.
//
// The auth token is part of every request path, so request URLs are
// redacted from returned errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
}

// NewClient validates cfg and returns a [Client]. No request is made.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("nanoleaf: host is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("nanoleaf: token is required")
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("nanoleaf: port must be between 1 and 65535, got %d", port)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	base := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/api/v1/" + cfg.Token,
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base.String(),
		token:      cfg.Token,
		timeout:    timeout,
	}, nil
}

// Info returns the controller description including the panel layout.
func (c *Client) Info(ctx context.Context) (PanelInfo, error) {
	var info PanelInfo
	if err := c.do(ctx, "get info", http.MethodGet, "", nil, &info); err != nil {
		return PanelInfo{}, err
	}
	return info, nil
}

// SetPower switches the panels on or off.
func (c *Client) SetPower(ctx context.Context, on bool) error {
	return c.do(ctx, "set power", http.MethodPut, "/state", stateRequest{On: onValue{Value: on}}, nil)
}

// SelectedEffect returns the name of the currently selected effect.
func (c *Client) SelectedEffect(ctx context.Context) (string, error) {
	var name string
	if err := c.do(ctx, "get effect", http.MethodGet, "/effects/select", nil, &name); err != nil {
		return "", err
	}
	return name, nil
}

// Write sends an effect command.
func (c *Client) Write(ctx context.Context, cmd WriteCommand) error {
	return c.do(ctx, "write effect", http.MethodPut, "/effects", cmd, nil)
}

// do performs one request. A nil body sends no payload; a nil out discards
// the response body.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("nanoleaf: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("nanoleaf: %s: create request: %w", op, c.redact(err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nanoleaf: %s: %w", op, c.redact(err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(out); err != nil {
		return fmt.Errorf("nanoleaf: %s: decode response: %w", op, err)
	}
	return nil
}

// redact strips the token-bearing URL from transport errors.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		redacted := *urlErr
		redacted.URL = strings.ReplaceAll(urlErr.URL, url.PathEscape(c.token), "REDACTED")
		redacted.URL = strings.ReplaceAll(redacted.URL, c.token, "REDACTED")
		return &redacted
	}
	return err
}

// requestContext applies the client timeout unless ctx already has a deadline.
func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
