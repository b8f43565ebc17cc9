// Package metrics collects balancer metrics off the request path.
//
// Components emit events into a buffered channel with non-blocking sends:
//   - Requests received and requests answered with 503
//   - Endpoint selections (redirects) per endpoint
//   - Probe latencies per endpoint with percentile calculations (P50, P95, P99)
//   - Probe failures per endpoint
//   - Selection table rebuilds and the latest table size
//
// A dedicated goroutine applies the events; Snapshot and Handler expose the
// aggregated view.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventProbeCompleted,
//		Endpoint: "files1.example.com:8081",
//		Duration: 150 * time.Millisecond,
//	})
//
//	snapshot := collector.Snapshot("latency-weighted")
//
// Pending events are drained when the context is cancelled.
package metrics
