package usecase

import (
	"math/rand"
	"time"

	"PumpDump/internal/domain/models"
	"PumpDump/pkg/config"
	xutil "PumpDump/pkg/util"

	"github.com/google/uuid"
)

const (
	jumpMinPercent  = 10.0
	jumpSpanPercent = 20.0
	driftBias       = 0.3
	driftScale      = 2.0
	chartDecimals   = 5
)

// SimulationConfig holds the game constants.
type SimulationConfig struct {
	VoteDuration int // seconds per round
	InitialPrice float64
	ChartWindow  int
	VotePolicy   string
}

// DefaultSimulationConfig returns the standard game: 480 s rounds, 0.00004
// floor, a 10 sample chart and one vote per identity per round.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		VoteDuration: 480,
		InitialPrice: 0.00004,
		ChartWindow:  10,
		VotePolicy:   config.VotePolicySingle,
	}
}

// Output is what a step of the simulation produced for the outside world.
type Output struct {
	Notices        []models.Notice
	Events         []*models.Event
	ChartChanged   bool
	DisplayChanged bool
}

func (o Output) Empty() bool {
	return len(o.Notices) == 0 && len(o.Events) == 0 && !o.ChartChanged && !o.DisplayChanged
}

// Simulation is the whole game state. It is not safe for concurrent use; the
// RoundEngine owns it and runs every mutation on one goroutine.
type Simulation struct {
	cfg    SimulationConfig
	rng    *rand.Rand
	round  models.RoundState
	tally  models.VoteTally
	price  models.PriceState
	chart  *models.ChartSeries
	wallet models.WalletConnection
	out    Output
}

// NewSimulation starts round 1 at the initial price. rng drives every random
// draw so a fixed seed replays the same game.
func NewSimulation(cfg SimulationConfig, rng *rand.Rand, now time.Time) *Simulation {
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}
	s := &Simulation{
		cfg:   cfg,
		rng:   rng,
		tally: models.NewVoteTally(),
		price: models.PriceState{Current: cfg.InitialPrice, Floor: cfg.InitialPrice},
		chart: models.NewChartSeries(cfg.ChartWindow),
	}
	s.startRound(now)
	s.out.DisplayChanged = true
	return s
}

// Tick advances the countdown by one second and resolves the round once it
// reaches zero.
func (s *Simulation) Tick(now time.Time) {
	if s.round.RemainingSeconds > 0 {
		s.round.RemainingSeconds--
		s.out.DisplayChanged = true
	}
	if s.round.RemainingSeconds == 0 {
		s.resolve(now)
	}
}

func (s *Simulation) resolve(now time.Time) {
	s.round.Active = false

	outcome := s.tally.Outcome()
	switch outcome {
	case models.OutcomeNone:
		s.notify(models.NoticeNoVotes, models.MsgNoVotes, now)
	case models.OutcomePump:
		s.notify(models.NoticePumpWins, models.MsgPumpWins, now)
		s.ApplyPump(now)
	case models.OutcomeDump:
		s.notify(models.NoticeDumpWins, models.MsgDumpWins, now)
		s.ApplyDump(now)
	}

	s.emit(models.EventRoundResolved, now, func(e *models.Event) {
		e.Outcome = outcome
	})

	s.tally.Reset()
	s.startRound(now)
	s.out.DisplayChanged = true
}

func (s *Simulation) startRound(now time.Time) {
	s.round = models.RoundState{
		Number:           s.round.Number + 1,
		ID:               uuid.NewString(),
		RemainingSeconds: s.cfg.VoteDuration,
		Active:           true,
		StartedAt:        now,
	}
}

// CastVote records a vote for the connected identity. Rejections are returned
// as domain errors and surfaced as notices.
func (s *Simulation) CastVote(option models.VoteOption, now time.Time) error {
	if !option.Valid() {
		return models.ErrInvalidOption
	}
	identity := s.wallet.PublicKey
	if identity == "" {
		return s.reject(models.ErrNotConnected, now)
	}
	if !s.round.Active {
		return s.reject(models.ErrVotingClosed, now)
	}
	if s.cfg.VotePolicy != config.VotePolicyPermissive && s.tally.HasVoted(identity) {
		return s.reject(models.ErrAlreadyVoted, now)
	}

	s.tally.Add(identity, option)
	s.emit(models.EventVoteCast, now, func(e *models.Event) {
		e.Option = option
		e.Identity = identity
	})
	s.out.DisplayChanged = true
	return nil
}

// Reject surfaces err as a notice when it has one and returns it unchanged.
func (s *Simulation) Reject(err error, now time.Time) error {
	return s.reject(err, now)
}

func (s *Simulation) reject(err error, now time.Time) error {
	if kind, msg, ok := models.NoticeFor(err); ok {
		s.notify(kind, msg, now)
	}
	return err
}

// ApplyPump raises the price by U[10,30) percent.
func (s *Simulation) ApplyPump(now time.Time) {
	a := s.rng.Float64()*jumpSpanPercent + jumpMinPercent
	s.applyFactor(1+a/100, models.CausePump, now)
}

// ApplyDump lowers the price by U[10,30) percent, never below the floor.
func (s *Simulation) ApplyDump(now time.Time) {
	a := s.rng.Float64()*jumpSpanPercent + jumpMinPercent
	s.applyFactor(1-a/100, models.CauseDump, now)
}

// ApplyDrift moves the price by a factor in [-0.6%, +1.4%).
func (s *Simulation) ApplyDrift(now time.Time) {
	f := (s.rng.Float64() - driftBias) * driftScale
	s.applyFactor(1+f/100, models.CauseDrift, now)
}

func (s *Simulation) applyFactor(factor float64, cause models.PriceCause, now time.Time) {
	s.price.Current *= factor
	s.price.Clamp()

	s.chart.Append(models.ChartPoint{Label: xutil.ClockLabel(now), Value: s.price.Current})
	s.emit(models.EventPriceChanged, now, func(e *models.Event) {
		e.Cause = cause
	})
	s.out.ChartChanged = true
	s.out.DisplayChanged = true
}

// Connect stores the wallet identity. It reports false when a wallet is
// already connected, in which case nothing changes.
func (s *Simulation) Connect(conn models.WalletConnection) bool {
	if s.wallet.PublicKey != "" || conn.PublicKey == "" {
		return false
	}
	s.wallet = conn
	s.emit(models.EventWalletConnected, conn.ConnectedAt, func(e *models.Event) {
		e.Identity = conn.PublicKey
	})
	s.out.DisplayChanged = true
	return true
}

func (s *Simulation) Wallet() models.WalletConnection { return s.wallet }

func (s *Simulation) Round() models.RoundState { return s.round }

func (s *Simulation) Tally() models.VoteTally { return s.tally }

func (s *Simulation) Price() models.PriceState { return s.price }

func (s *Simulation) Chart() models.ChartFrame { return s.chart.Frame(chartDecimals) }

// Drain returns and clears the pending output.
func (s *Simulation) Drain() Output {
	out := s.out
	s.out = Output{}
	return out
}

func (s *Simulation) notify(kind models.NoticeKind, msg string, now time.Time) {
	s.out.Notices = append(s.out.Notices, models.Notice{Kind: kind, Message: msg, At: now})
}

func (s *Simulation) emit(t models.EventType, now time.Time, fill func(*models.Event)) {
	e := &models.Event{
		ID:      uuid.NewString(),
		Type:    t,
		Round:   s.round.Number,
		RoundID: s.round.ID,
		Price:   s.price.Current,
		Growth:  s.price.Growth(),
		Pump:    s.tally.Pump,
		Dump:    s.tally.Dump,
		At:      now.UTC(),
	}
	if fill != nil {
		fill(e)
	}
	s.out.Events = append(s.out.Events, e)
}
