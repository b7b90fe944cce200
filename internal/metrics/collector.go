package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived  EventType = "request_received"
	EventAttemptCompleted EventType = "attempt_completed"
	EventOutcomeRecorded  EventType = "outcome_recorded"
)

type MetricEvent struct {
	Type           EventType
	Timestamp      time.Time
	Endpoint       string
	Duration       time.Duration
	StatusCode     int
	TransportError bool
	Outcome        string
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

// Emit queues an event without blocking; the event is dropped when the
// buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
	}
}

// ObserveAttempt satisfies upstream.AttemptObserver, recording one candidate
// attempt per call.
func (c *Collector) ObserveAttempt(url string, status int, elapsed time.Duration, err error) {
	c.Emit(MetricEvent{
		Type:           EventAttemptCompleted,
		Timestamp:      time.Now(),
		Endpoint:       url,
		Duration:       elapsed,
		StatusCode:     status,
		TransportError: err != nil,
	})
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

	case EventAttemptCompleted:
		c.metrics.RecordAttempt(event.Endpoint, event.Duration, event.StatusCode, event.TransportError)

	case EventOutcomeRecorded:
		c.metrics.RecordOutcome(event.Outcome)
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

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
