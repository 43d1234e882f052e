package usecase

import (
	"context"
	"fmt"
	"time"

	"PumpDump/internal/domain/models"
	drepo "PumpDump/internal/domain/repository"
)

const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// EventProcessor routes simulation events to the configured backend.
type EventProcessor struct {
	pub     drepo.EventPublisher
	store   drepo.EventStorage
	metrics drepo.Metrics
	backend string
}

// NewEventProcessor creates a new EventProcessor. pub and store may be nil when
// the backend does not use them.
func NewEventProcessor(
	pub drepo.EventPublisher,
	store drepo.EventStorage,
	metrics drepo.Metrics,
	backend string,
) *EventProcessor {
	return &EventProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

func (p *EventProcessor) Backend() string { return p.backend }

// Process routes a single event.
func (p *EventProcessor) Process(ctx context.Context, e *models.Event) error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	return p.ProcessBatch(ctx, []*models.Event{e})
}

// ProcessBatch routes events in one backend call.
func (p *EventProcessor) ProcessBatch(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendNone, "":
		return nil
	case BackendKafka:
		if p.pub == nil {
			return fmt.Errorf("kafka backend has no publisher")
		}
		err = p.pub.PublishBatch(ctx, events)
	case BackendClickHouse:
		if p.store == nil {
			return fmt.Errorf("clickhouse backend has no storage")
		}
		err = p.store.StoreBatch(ctx, events)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, e := range events {
		p.metrics.RecordEventSent(p.backend, string(e.Type))
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *EventProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
