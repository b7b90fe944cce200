// Package metrics provides real-time metrics collection for the proxy.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Inbound completion request counts
//   - Upstream attempt counts and transport errors per candidate endpoint
//   - Attempt latencies with percentile calculations (P50, P95, P99)
//   - Upstream HTTP status code distribution
//   - Classified outcome totals
//
// The collector runs in a dedicated goroutine and processes events without blocking
// the request path. Events are sent via buffered channels with non-blocking semantics
// to prevent performance degradation under load.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	// Emit events during request handling
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventAttemptCompleted,
//		Endpoint:   "https://nano-gpt.com/api/v1/chat/completions",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	// Get metrics snapshot
//	snapshot := collector.Snapshot()
//
// The package provides thread-safe metrics storage using sync.RWMutex and supports
// graceful shutdown with event draining to prevent data loss.
package metrics
