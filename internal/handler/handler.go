package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/angeloszaimis/redirect-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/redirect-balancer/internal/metrics"
	"github.com/angeloszaimis/redirect-balancer/internal/wire"
)

const methodGet = "GET"

// ErrUnsupportedMethod is returned for requests other than GET. No response is
// written for them.
var ErrUnsupportedMethod = errors.New("handler: unsupported method")

// DispatchHandler answers one client request per connection with a redirect
// to a selected endpoint, or with 503 when none is available.
type DispatchHandler struct {
	logger           *slog.Logger
	balancer         *loadbalancer.LoadBalancer
	pages            *Pages
	metricsCollector *metrics.Collector
}

func NewDispatchHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer, pages *Pages, collector *metrics.Collector) *DispatchHandler {
	return &DispatchHandler{
		logger:           logger,
		balancer:         lb,
		pages:            pages,
		metricsCollector: collector,
	}
}

// ServeConn reads a single request from conn and writes the response. The
// caller closes conn. Errors are scoped to this connection.
func (h *DispatchHandler) ServeConn(ctx context.Context, conn net.Conn) error {
	client := conn.RemoteAddr().String()

	req, err := wire.ReadRequest(wire.NewLineReader(conn))
	if err != nil {
		return fmt.Errorf("read request from %s: %w", client, err)
	}

	h.logger.InfoContext(ctx, "Received request",
		slog.String("from", client),
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("proto", req.Proto))

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
	})

	if req.Method != methodGet {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.Method)
	}

	path := strings.TrimLeft(req.Path, "/")

	endpoint, ok := h.balancer.Pick()
	if !ok {
		h.logger.WarnContext(ctx, "No active servers available", slog.String("client", client))
		h.metricsCollector.Emit(metrics.MetricEvent{
			Type:      metrics.EventUnavailable,
			Timestamp: time.Now(),
		})
		return h.respond(conn, wire.StatusServiceUnavailable, h.pages.Unavailable, "")
	}

	location := endpoint.Location(path)

	h.logger.InfoContext(ctx, "Redirecting client",
		slog.String("client", client),
		slog.String("endpoint", endpoint.String()),
		slog.String("location", location))

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:      metrics.EventEndpointSelected,
		Timestamp: time.Now(),
		Endpoint:  endpoint.String(),
	})

	return h.respond(conn, wire.StatusMovedPermanently, h.pages.Redirect, location)
}

func (h *DispatchHandler) respond(w io.Writer, code string, page Page, location string) error {
	head := wire.BuildResponseHead(code, page.ContentType, int64(len(page.Body)), location)

	if _, err := io.WriteString(w, head); err != nil {
		return fmt.Errorf("write %s head: %w", code, err)
	}
	if _, err := w.Write(page.Body); err != nil {
		return fmt.Errorf("write %s body: %w", code, err)
	}

	return nil
}
