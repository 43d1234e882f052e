package repository

import (
	"context"

	"PumpDump/internal/domain/models"
)

// WalletProvider is the injected wallet handshake. Connect may block until the
// user approves or declines.
type WalletProvider interface {
	IsPhantom() bool
	Connect(ctx context.Context) (publicKey string, err error)
}

// ChartRenderer draws the chart window.
type ChartRenderer interface {
	Render(ctx context.Context, frame models.ChartFrame)
}

// DisplaySurface shows state and blocking notices.
type DisplaySurface interface {
	Show(ctx context.Context, d models.Display)
	Notify(ctx context.Context, n models.Notice)
}

type EventPublisher interface {
	Publish(ctx context.Context, e *models.Event) error
	PublishBatch(ctx context.Context, events []*models.Event) error
	Close() error
}

type EventStorage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, e *models.Event) error
	StoreBatch(ctx context.Context, events []*models.Event) error
	Query(ctx context.Context, f models.EventFilter) ([]*models.Event, error)
	Health(ctx context.Context) error
	Close() error
}

// SnapshotStore keeps the latest display and chart for readers outside the engine.
type SnapshotStore interface {
	SaveDisplay(ctx context.Context, d models.Display) error
	LoadDisplay(ctx context.Context) (models.Display, error)
	SaveChart(ctx context.Context, f models.ChartFrame) error
	LoadChart(ctx context.Context) (models.ChartFrame, error)
}

type Metrics interface {
	RecordVote(option string)
	RecordVoteRejected(reason string)
	RecordRound(outcome string)
	RecordPrice(price float64)
	RecordSubscribers(n int)
	RecordEventSent(backend, eventType string)
	RecordEventDropped(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordWalletConnect(result string)
}
