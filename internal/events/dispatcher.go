// Package events delivers report lifecycle events to a broker in the
// background.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	drainTimeout   = 5 * time.Second
)

// BatchPublisher writes events to a broker.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []domain.ReportEvent) error
}

// Dispatcher buffers events and publishes them in batches from a single
// goroutine. Publish never blocks; a full buffer drops the event.
type Dispatcher struct {
	queue         chan domain.ReportEvent
	publisher     BatchPublisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewDispatcher creates a dispatcher with room for bufferSize pending events.
func NewDispatcher(publisher BatchPublisher, bufferSize, batchSize int, flushInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		queue:         make(chan domain.ReportEvent, bufferSize),
		publisher:     publisher,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       metrics,
	}
}

// Publish enqueues event for delivery.
func (d *Dispatcher) Publish(event domain.ReportEvent) {
	select {
	case d.queue <- event:
	default:
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("event buffer full, dropping event",
			"event_type", event.Type,
			"report_id", event.ReportID,
		)
	}
}

// Run publishes batches until ctx is cancelled, then makes one bounded
// attempt to flush what is still buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("event dispatcher started", "batch_size", d.batchSize, "flush_interval", d.flushInterval)
	d.metrics.DispatcherRunning.Set(1)
	defer d.metrics.DispatcherRunning.Set(0)

	for {
		batch, ok := d.collect(ctx)
		if len(batch) > 0 {
			d.publishWithRetry(ctx, batch)
		}
		if !ok {
			d.drain()
			d.logger.Info("event dispatcher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// collect waits for the first event, then gathers more until the batch is
// full or the flush interval elapses. Returns false once ctx is done.
func (d *Dispatcher) collect(ctx context.Context) ([]domain.ReportEvent, bool) {
	var batch []domain.ReportEvent
	select {
	case <-ctx.Done():
		return nil, false
	case evt := <-d.queue:
		batch = append(batch, evt)
	}

	timer := time.NewTimer(d.flushInterval)
	defer timer.Stop()

	for len(batch) < d.batchSize {
		select {
		case <-ctx.Done():
			return batch, false
		case <-timer.C:
			return batch, true
		case evt := <-d.queue:
			batch = append(batch, evt)
		}
	}
	return batch, true
}

// publishWithRetry retries a failed batch with exponential backoff until it
// succeeds or ctx is cancelled.
func (d *Dispatcher) publishWithRetry(ctx context.Context, batch []domain.ReportEvent) {
	backoff := initialBackoff
	for {
		err := d.publisher.PublishBatch(ctx, batch)
		if err == nil {
			d.recordPublished(batch)
			return
		}
		d.metrics.EventPublishErrors.Inc()
		if ctx.Err() != nil {
			d.requeue(batch)
			return
		}
		d.logger.Error("publish event batch failed", "error", err, "batch_size", len(batch), "retry_in", backoff)
		if !sleepWithContext(ctx, backoff) {
			d.requeue(batch)
			return
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// requeue puts an undelivered batch back so drain can make a final attempt.
func (d *Dispatcher) requeue(batch []domain.ReportEvent) {
	for _, evt := range batch {
		d.Publish(evt)
	}
}

// drain makes a single attempt to deliver buffered events after shutdown.
func (d *Dispatcher) drain() {
	var pending []domain.ReportEvent
	for len(d.queue) > 0 {
		pending = append(pending, <-d.queue)
	}
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.publisher.PublishBatch(ctx, pending); err != nil {
		d.metrics.EventPublishErrors.Inc()
		d.metrics.EventsDropped.Add(float64(len(pending)))
		d.logger.Error("final event flush failed", "error", err, "dropped", len(pending))
		return
	}
	d.recordPublished(pending)
}

func (d *Dispatcher) recordPublished(batch []domain.ReportEvent) {
	d.metrics.EventsPublished.Add(float64(len(batch)))
	d.metrics.EventBatchSize.Observe(float64(len(batch)))
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
