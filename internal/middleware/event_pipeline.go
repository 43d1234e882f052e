package middleware

import (
	"context"
	"fmt"
	"time"

	"PumpDump/internal/domain/models"
	domrepo "PumpDump/internal/domain/repository"
	applogger "PumpDump/pkg/logger"

	"github.com/jonboulle/clockwork"
)

// BatchProc is the minimal processor interface the pipeline needs.
type BatchProc interface {
	ProcessBatch(ctx context.Context, events []*models.Event) error
}

// EventPipeline sits between the round engine and the event backend. Offer
// never blocks: events are validated and buffered, and a single Run goroutine
// batches them out, retrying with backoff when the backend is unavailable.
type EventPipeline struct {
	proc    BatchProc
	metrics domrepo.Metrics
	log     *applogger.Logger
	clock   clockwork.Clock

	bufSize    int
	batchSize  int
	flushEvery time.Duration
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration

	bufCh chan *models.Event
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets how many events may wait for the backend.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the flush size and the longest an event may wait in a batch.
func WithBatch(size int, every time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if every > 0 {
			p.flushEvery = every
		}
	}
}

// WithTimeout bounds a single backend call.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetry sets how often a failed batch is retried and the first backoff.
func WithRetry(n int, backoff time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if n >= 0 {
			p.retries = n
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

func WithClock(c clockwork.Clock) PipelineOption {
	return func(p *EventPipeline) { p.clock = c }
}

// NewEventPipeline creates a new pipeline.
func NewEventPipeline(proc BatchProc, metrics domrepo.Metrics, log *applogger.Logger, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		proc:       proc,
		metrics:    metrics,
		log:        log,
		clock:      clockwork.NewRealClock(),
		bufSize:    1024,
		batchSize:  100,
		flushEvery: 500 * time.Millisecond,
		timeout:    5 * time.Second,
		retries:    3,
		backoff:    50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Event, p.bufSize)
	return p
}

// Offer validates and enqueues e. It reports false when e was dropped.
func (p *EventPipeline) Offer(e *models.Event) bool {
	if err := validateEvent(e); err != nil {
		p.metrics.RecordEventDropped("invalid")
		p.log.Debug("event rejected", applogger.Error(err))
		return false
	}
	select {
	case p.bufCh <- e:
		return true
	default:
		p.metrics.RecordEventDropped("buffer_full")
		return false
	}
}

// Pending returns the number of buffered events.
func (p *EventPipeline) Pending() int { return len(p.bufCh) }

// Run flushes buffered events until ctx is cancelled, then drains what is
// left with a fresh timeout.
func (p *EventPipeline) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.flushEvery)
	defer ticker.Stop()

	batch := make([]*models.Event, 0, p.batchSize)
	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case e := <-p.bufCh:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				drainCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
				p.flush(drainCtx, batch)
				cancel()
			}
			return nil
		case e := <-p.bufCh:
			batch = append(batch, e)
			if len(batch) >= p.batchSize {
				p.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.Chan():
			if len(batch) > 0 {
				p.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *EventPipeline) flush(ctx context.Context, batch []*models.Event) {
	backoff := p.backoff
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.proc.ProcessBatch(callCtx, batch)
		cancel()
		if err == nil {
			return
		}

		p.metrics.RecordError("pipeline_flush")
		if attempt >= p.retries || ctx.Err() != nil {
			for range batch {
				p.metrics.RecordEventDropped("backend_error")
			}
			p.log.Error("event batch dropped",
				applogger.Int("events", len(batch)),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err),
			)
			return
		}

		p.log.Warn("event batch failed, retrying",
			applogger.Int("attempt", attempt+1),
			applogger.Duration("backoff_ms", backoff),
			applogger.Error(err),
		)
		select {
		case <-p.clock.After(backoff):
		case <-ctx.Done():
		}
		if backoff < p.maxBackoff {
			backoff *= 2
		}
	}
}

func validateEvent(e *models.Event) error {
	if e == nil {
		return fmt.Errorf("event nil")
	}
	if e.ID == "" {
		return fmt.Errorf("event id empty")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("event type %q invalid", e.Type)
	}
	if e.At.IsZero() {
		return fmt.Errorf("event time missing")
	}
	if e.Price < 0 {
		return fmt.Errorf("negative price")
	}
	return nil
}
