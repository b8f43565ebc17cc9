package healthcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
	"github.com/angeloszaimis/redirect-balancer/internal/metrics"
	"github.com/angeloszaimis/redirect-balancer/internal/wire"
)

// Options configures a Prober.
type Options struct {
	// Path is the test resource requested from every endpoint.
	Path string
	// Timeout bounds a single probe. Zero leaves it to the platform.
	Timeout time.Duration
	// Workers is the number of endpoints probed at once. One or less probes
	// strictly in order.
	Workers int
	Logger  *slog.Logger
	// Collector receives probe events. May be nil.
	Collector *metrics.Collector
}

// Prober scores endpoints by probe latency.
type Prober struct {
	path      string
	timeout   time.Duration
	workers   int
	dialer    net.Dialer
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewProber creates a Prober from opts.
func NewProber(opts Options) *Prober {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Prober{
		path:      opts.Path,
		timeout:   opts.Timeout,
		workers:   opts.Workers,
		logger:    opts.Logger,
		collector: opts.Collector,
	}
}

// Probe measures every endpoint and returns the reachable ones with their
// latency, in input order. Failed endpoints are dropped, never retried.
func (p *Prober) Probe(ctx context.Context, endpoints []backend.Endpoint) []backend.Scored {
	results := make([]*backend.Scored, len(endpoints))

	if p.workers <= 1 {
		for i, endpoint := range endpoints {
			results[i] = p.evaluate(ctx, i+1, endpoint)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.workers)

		for i, endpoint := range endpoints {
			g.Go(func() error {
				results[i] = p.evaluate(ctx, i+1, endpoint)
				return nil
			})
		}
		_ = g.Wait()
	}

	scored := make([]backend.Scored, 0, len(endpoints))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}

	return scored
}

func (p *Prober) evaluate(ctx context.Context, index int, endpoint backend.Endpoint) *backend.Scored {
	p.logger.Debug("Computing response time",
		slog.Int("server", index),
		slog.String("endpoint", endpoint.String()))

	latency, err := p.ProbeOne(ctx, endpoint)
	if err != nil {
		p.logger.Warn("Removing server from active list",
			slog.Int("server", index),
			slog.String("endpoint", endpoint.String()),
			slog.Any("err", err))

		p.collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventProbeFailed,
			Timestamp: time.Now(),
			Endpoint:  endpoint.String(),
		})
		return nil
	}

	p.logger.Info("Measured response time",
		slog.Int("server", index),
		slog.String("endpoint", endpoint.String()),
		slog.Duration("latency", latency))

	p.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventProbeCompleted,
		Timestamp: time.Now(),
		Endpoint:  endpoint.String(),
		Duration:  latency,
	})

	return &backend.Scored{Endpoint: endpoint, Latency: latency}
}

// ProbeOne sends the test request to endpoint and drains the response. The
// returned latency excludes connection setup and includes the full body.
func (p *Prober) ProbeOne(ctx context.Context, endpoint backend.Endpoint) (time.Duration, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Unblock reads on a stalled backend once the context ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	start := time.Now()

	request := wire.BuildRequestLine(endpoint.Host, endpoint.Port, p.path)
	if _, err := io.WriteString(conn, request); err != nil {
		return 0, fmt.Errorf("send probe: %w", err)
	}

	lr := wire.NewLineReader(conn)
	head, err := wire.ParseResponseHead(lr)
	if err != nil {
		return 0, fmt.Errorf("read probe response: %w", err)
	}

	if _, err := io.CopyN(io.Discard, lr, head.ContentLength); err != nil {
		return 0, fmt.Errorf("drain probe body: %w", err)
	}

	latency := time.Since(start)

	if head.StatusCode != wire.StatusOK {
		p.logger.Warn("Probe resource not served",
			slog.String("endpoint", endpoint.String()),
			slog.String("path", p.path),
			slog.String("status", head.StatusCode))
	}

	return latency, nil
}
