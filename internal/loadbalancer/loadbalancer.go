package loadbalancer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
	"github.com/angeloszaimis/redirect-balancer/internal/metrics"
	"github.com/angeloszaimis/redirect-balancer/internal/registry"
	"github.com/angeloszaimis/redirect-balancer/internal/strategy"
)

// Prober scores a list of endpoints.
type Prober interface {
	Probe(ctx context.Context, endpoints []backend.Endpoint) []backend.Scored
}

// LoadBalancer owns the current selection table. The table is only ever
// replaced as a whole, so Pick always sees a complete snapshot.
type LoadBalancer struct {
	strategy  strategy.Strategy
	source    registry.Source
	prober    Prober
	logger    *slog.Logger
	collector *metrics.Collector
	table     atomic.Pointer[strategy.Table]
}

func NewLoadBalancer(
	strat strategy.Strategy,
	source registry.Source,
	prober Prober,
	logger *slog.Logger,
	collector *metrics.Collector,
) *LoadBalancer {
	lb := &LoadBalancer{
		strategy:  strat,
		source:    source,
		prober:    prober,
		logger:    logger,
		collector: collector,
	}
	lb.table.Store(strategy.BuildTable(nil))
	return lb
}

// Table returns the current snapshot.
func (lb *LoadBalancer) Table() *strategy.Table {
	return lb.table.Load()
}

// Swap installs table and returns the one it replaced.
func (lb *LoadBalancer) Swap(table *strategy.Table) *strategy.Table {
	return lb.table.Swap(table)
}

// Pick selects an endpoint from the current table. ok is false when no
// endpoint is available.
func (lb *LoadBalancer) Pick() (backend.Endpoint, bool) {
	return lb.strategy.Select(lb.table.Load())
}

// Refresh reloads the endpoint list, probes it and installs the resulting
// table. When the list cannot be loaded the current table is kept.
func (lb *LoadBalancer) Refresh(ctx context.Context) (*strategy.Table, error) {
	start := time.Now()

	endpoints, err := lb.source.Endpoints()
	if err != nil {
		return lb.Table(), fmt.Errorf("load endpoints: %w", err)
	}

	if len(endpoints) == 0 {
		lb.logger.Warn("No servers configured")
	}

	table := strategy.BuildTable(lb.prober.Probe(ctx, endpoints))
	lb.Swap(table)

	lb.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventTableRebuilt,
		Timestamp: time.Now(),
		TableSize: table.Len(),
	})

	attrs := []any{
		slog.Int("configured", len(endpoints)),
		slog.Int("active", table.Len()),
		slog.Duration("took", time.Since(start)),
	}
	for _, entry := range table.Entries() {
		attrs = append(attrs, slog.Group(entry.String(),
			slog.Duration("latency", entry.Latency),
			slog.Int("weight", entry.CumulativeWeight)))
	}
	lb.logger.Info("Selection table rebuilt", attrs...)

	return table, nil
}
