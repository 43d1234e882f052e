package usecase

import (
	"context"
	"sync"
	"time"

	"PumpDump/internal/domain/models"
	drepo "PumpDump/internal/domain/repository"
	applogger "PumpDump/pkg/logger"
)

// SnapshotWriter persists the latest display and chart frame to a
// SnapshotStore. Offer only replaces the pending value, so a slow store skips
// intermediate states instead of holding up the engine.
type SnapshotWriter struct {
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	log     *applogger.Logger
	timeout time.Duration

	mu      sync.Mutex
	display *models.Display
	chart   *models.ChartFrame
	wake    chan struct{}
}

func NewSnapshotWriter(store drepo.SnapshotStore, metrics drepo.Metrics, log *applogger.Logger, timeout time.Duration) *SnapshotWriter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SnapshotWriter{
		store:   store,
		metrics: metrics,
		log:     log,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
	}
}

func (w *SnapshotWriter) Offer(d models.Display, chart *models.ChartFrame) {
	w.mu.Lock()
	w.display = &d
	if chart != nil {
		f := *chart
		w.chart = &f
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run writes pending snapshots until ctx is cancelled, then writes the last
// pending one.
func (w *SnapshotWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), w.timeout)
			w.write(flushCtx)
			cancel()
			return nil
		case <-w.wake:
			wctx, cancel := context.WithTimeout(ctx, w.timeout)
			w.write(wctx)
			cancel()
		}
	}
}

func (w *SnapshotWriter) write(ctx context.Context) {
	w.mu.Lock()
	d, f := w.display, w.chart
	w.display, w.chart = nil, nil
	w.mu.Unlock()

	if d != nil {
		if err := w.store.SaveDisplay(ctx, *d); err != nil {
			w.metrics.RecordError("snapshot_display")
			w.log.Warn("save display snapshot", applogger.Error(err))
		}
	}
	if f != nil {
		if err := w.store.SaveChart(ctx, *f); err != nil {
			w.metrics.RecordError("snapshot_chart")
			w.log.Warn("save chart snapshot", applogger.Error(err))
		}
	}
}
