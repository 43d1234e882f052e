package usecase

import (
	"context"
	"errors"
	"time"

	"PumpDump/internal/domain/models"
	drepo "PumpDump/internal/domain/repository"
	applogger "PumpDump/pkg/logger"

	"github.com/jonboulle/clockwork"
)

// EventSink accepts events without blocking. It reports false when the event
// was dropped.
type EventSink interface {
	Offer(e *models.Event) bool
}

// SnapshotSink receives the latest display and, when it changed, chart frame.
type SnapshotSink interface {
	Offer(d models.Display, chart *models.ChartFrame)
}

type EngineOption func(*RoundEngine)

// WithTickInterval sets the countdown period.
func WithTickInterval(d time.Duration) EngineOption {
	return func(e *RoundEngine) {
		if d > 0 {
			e.tickEvery = d
		}
	}
}

// WithDriftInterval sets the drift period.
func WithDriftInterval(d time.Duration) EngineOption {
	return func(e *RoundEngine) {
		if d > 0 {
			e.driftEvery = d
		}
	}
}

func WithEventSink(s EventSink) EngineOption {
	return func(e *RoundEngine) { e.events = s }
}

func WithSnapshotSink(s SnapshotSink) EngineOption {
	return func(e *RoundEngine) { e.snapshots = s }
}

type command struct {
	fn   func(s *Simulation, now time.Time)
	done chan struct{}
}

// RoundEngine owns a Simulation and serializes everything that touches it:
// the countdown ticker, the drift ticker and user commands all run to
// completion one at a time on the Run goroutine.
type RoundEngine struct {
	sim        *Simulation
	clock      clockwork.Clock
	tickEvery  time.Duration
	driftEvery time.Duration

	renderer  drepo.ChartRenderer
	surface   drepo.DisplaySurface
	events    EventSink
	snapshots SnapshotSink
	metrics   drepo.Metrics
	log       *applogger.Logger

	cmds chan command
	done chan struct{}
}

func NewRoundEngine(
	sim *Simulation,
	clock clockwork.Clock,
	renderer drepo.ChartRenderer,
	surface drepo.DisplaySurface,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts ...EngineOption,
) *RoundEngine {
	e := &RoundEngine{
		sim:        sim,
		clock:      clock,
		tickEvery:  time.Second,
		driftEvery: 5 * time.Second,
		renderer:   renderer,
		surface:    surface,
		metrics:    metrics,
		log:        log,
		cmds:       make(chan command),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the simulation until ctx is cancelled.
func (e *RoundEngine) Run(ctx context.Context) error {
	defer close(e.done)

	tick := e.clock.NewTicker(e.tickEvery)
	defer tick.Stop()
	drift := e.clock.NewTicker(e.driftEvery)
	defer drift.Stop()

	e.renderer.Render(ctx, e.sim.Chart())
	e.flush(ctx, e.clock.Now())
	e.log.Info("round engine started",
		applogger.Duration("tick_ms", e.tickEvery),
		applogger.Duration("drift_ms", e.driftEvery),
		applogger.Int("round", e.sim.Round().Number),
	)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("round engine stopped", applogger.Int("round", e.sim.Round().Number))
			return nil
		case now := <-tick.Chan():
			e.sim.Tick(now)
			e.flush(ctx, now)
		case now := <-drift.Chan():
			e.sim.ApplyDrift(now)
			e.flush(ctx, now)
		case cmd := <-e.cmds:
			now := e.clock.Now()
			cmd.fn(e.sim, now)
			e.flush(ctx, now)
			close(cmd.done)
		}
	}
}

// Done is closed once Run has returned.
func (e *RoundEngine) Done() <-chan struct{} { return e.done }

func (e *RoundEngine) exec(ctx context.Context, fn func(s *Simulation, now time.Time)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return models.ErrEngineStopped
	}
	// an accepted command always runs to completion
	<-cmd.done
	return nil
}

// CastVote votes for the connected wallet.
func (e *RoundEngine) CastVote(ctx context.Context, option models.VoteOption) error {
	var voteErr error
	if err := e.exec(ctx, func(s *Simulation, now time.Time) {
		voteErr = s.CastVote(option, now)
	}); err != nil {
		return err
	}
	if voteErr != nil {
		e.metrics.RecordVoteRejected(rejectReason(voteErr))
		e.log.Debug("vote rejected", applogger.String("option", string(option)), applogger.Error(voteErr))
	}
	return voteErr
}

// Connect stores conn as the wallet identity. It reports false when a wallet
// was already connected.
func (e *RoundEngine) Connect(ctx context.Context, conn models.WalletConnection) (bool, error) {
	var changed bool
	err := e.exec(ctx, func(s *Simulation, _ time.Time) {
		changed = s.Connect(conn)
	})
	return changed, err
}

// Wallet returns the connected wallet, zero when none.
func (e *RoundEngine) Wallet(ctx context.Context) (models.WalletConnection, error) {
	var w models.WalletConnection
	err := e.exec(ctx, func(s *Simulation, _ time.Time) {
		w = s.Wallet()
	})
	return w, err
}

// Reject shows the notice for a rejection that happened outside the engine.
func (e *RoundEngine) Reject(ctx context.Context, cause error) error {
	return e.exec(ctx, func(s *Simulation, now time.Time) {
		_ = s.Reject(cause, now)
	})
}

// Snapshot reads the current display and chart.
func (e *RoundEngine) Snapshot(ctx context.Context) (models.Display, models.ChartFrame, error) {
	var (
		d models.Display
		f models.ChartFrame
	)
	err := e.exec(ctx, func(s *Simulation, now time.Time) {
		d = BuildDisplay(s, now)
		f = s.Chart()
	})
	return d, f, err
}

func (e *RoundEngine) flush(ctx context.Context, now time.Time) {
	out := e.sim.Drain()
	if out.Empty() {
		return
	}

	for _, n := range out.Notices {
		e.surface.Notify(ctx, n)
	}

	var frame *models.ChartFrame
	if out.ChartChanged {
		f := e.sim.Chart()
		frame = &f
		e.renderer.Render(ctx, f)
	}

	if out.DisplayChanged || frame != nil {
		d := BuildDisplay(e.sim, now)
		e.surface.Show(ctx, d)
		if e.snapshots != nil {
			e.snapshots.Offer(d, frame)
		}
	}

	for _, ev := range out.Events {
		switch ev.Type {
		case models.EventVoteCast:
			e.metrics.RecordVote(string(ev.Option))
		case models.EventRoundResolved:
			e.metrics.RecordRound(string(ev.Outcome))
			e.log.Info("round resolved",
				applogger.Int("round", ev.Round),
				applogger.String("outcome", string(ev.Outcome)),
				applogger.Int("pump", ev.Pump),
				applogger.Int("dump", ev.Dump),
				applogger.Float64("price", ev.Price),
			)
		case models.EventPriceChanged:
			e.metrics.RecordPrice(ev.Price)
		}
		if e.events != nil {
			e.events.Offer(ev)
		}
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, models.ErrVotingClosed):
		return "voting_closed"
	case errors.Is(err, models.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, models.ErrInvalidOption):
		return "invalid_option"
	default:
		return "other"
	}
}
