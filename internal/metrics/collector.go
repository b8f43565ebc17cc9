package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived  EventType = "request_received"
	EventEndpointSelected EventType = "endpoint_selected"
	EventUnavailable      EventType = "unavailable"
	EventProbeCompleted   EventType = "probe_completed"
	EventProbeFailed      EventType = "probe_failed"
	EventTableRebuilt     EventType = "table_rebuilt"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Endpoint  string
	Duration  time.Duration
	// TableSize is set on EventTableRebuilt.
	TableSize int
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking. Events are dropped when the buffer is
// full. Emit on a nil Collector is a no-op.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests()

	case EventEndpointSelected:
		c.metrics.RecordSelection(event.Endpoint)

	case EventUnavailable:
		c.metrics.IncrementUnavailable()

	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Endpoint, event.Duration)

	case EventProbeFailed:
		c.metrics.RecordProbeFailure(event.Endpoint)

	case EventTableRebuilt:
		c.metrics.RecordRebuild(event.TableSize)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}
