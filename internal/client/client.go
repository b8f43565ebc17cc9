package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
	"github.com/angeloszaimis/redirect-balancer/internal/wire"
)

// DefaultMaxRedirects is how many 301s Get follows before giving up.
const DefaultMaxRedirects = 1

var (
	// ErrInvalidURL is returned for URLs that are not http://host:port/path.
	ErrInvalidURL = errors.New("client: invalid url")

	// ErrTooManyRedirects is returned when a redirect leads to another one.
	ErrTooManyRedirects = errors.New("client: too many redirects")
)

// Response is a complete response read off the wire.
type Response struct {
	// URL is the address that produced this response.
	URL  string
	Head wire.ResponseHead
	Body []byte
}

type Client struct {
	dialer       net.Dialer
	maxRedirects int
	logger       *slog.Logger
}

func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		maxRedirects: DefaultMaxRedirects,
		logger:       logger,
	}
}

// Get fetches rawURL and follows a 301 to its Location. Any final status is
// returned as a Response, not an error.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	target := rawURL

	for redirects := 0; ; redirects++ {
		resp, err := c.Fetch(ctx, target)
		if err != nil {
			return nil, err
		}

		if resp.Head.StatusCode != wire.StatusMovedPermanently {
			return resp, nil
		}

		if redirects >= c.maxRedirects {
			return nil, fmt.Errorf("%w: %s redirected again to %q", ErrTooManyRedirects, target, resp.Head.Location)
		}

		c.logger.InfoContext(ctx, "Following redirect",
			slog.String("from", target),
			slog.String("to", resp.Head.Location))
		target = resp.Head.Location
	}
}

// Fetch performs a single exchange with rawURL without following redirects.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	endpoint, path, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if _, err := io.WriteString(conn, wire.BuildRequestLine(endpoint.Host, endpoint.Port, path)); err != nil {
		return nil, fmt.Errorf("send request to %s: %w", endpoint, err)
	}

	lr := wire.NewLineReader(conn)
	head, err := wire.ParseResponseHead(lr)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", endpoint, err)
	}

	body, err := io.ReadAll(io.LimitReader(lr, head.ContentLength))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", endpoint, err)
	}
	if int64(len(body)) < head.ContentLength {
		return nil, fmt.Errorf("read body from %s: got %d of %d bytes: %w",
			endpoint, len(body), head.ContentLength, io.ErrUnexpectedEOF)
	}

	c.logger.DebugContext(ctx, "Received response",
		slog.String("url", rawURL),
		slog.String("status", head.StatusCode),
		slog.Int64("content_length", head.ContentLength))

	return &Response{URL: rawURL, Head: head, Body: body}, nil
}

// ParseURL splits rawURL into the endpoint to dial and the path to request.
// Only http URLs with an explicit port and a non-root path are accepted.
func ParseURL(rawURL string) (backend.Endpoint, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return backend.Endpoint{}, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" {
		return backend.Endpoint{}, "", fmt.Errorf("%w: scheme must be http: %q", ErrInvalidURL, rawURL)
	}

	host := u.Hostname()
	if err := validation.Validate(host, validation.Required, is.Host); err != nil {
		return backend.Endpoint{}, "", fmt.Errorf("%w: host %q: %v", ErrInvalidURL, host, err)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return backend.Endpoint{}, "", fmt.Errorf("%w: port must be explicit: %q", ErrInvalidURL, rawURL)
	}
	if err := validation.Validate(port, validation.Required, validation.Min(1), validation.Max(65535)); err != nil {
		return backend.Endpoint{}, "", fmt.Errorf("%w: port %d: %v", ErrInvalidURL, port, err)
	}

	path := u.EscapedPath()
	if path == "" || path == "/" {
		return backend.Endpoint{}, "", fmt.Errorf("%w: no file requested: %q", ErrInvalidURL, rawURL)
	}

	return backend.Endpoint{Host: host, Port: port}, path, nil
}
