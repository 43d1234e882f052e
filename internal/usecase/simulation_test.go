package usecase

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"PumpDump/internal/domain/models"
	"PumpDump/pkg/config"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSimulation(cfg SimulationConfig, src rand.Source) *Simulation {
	if src == nil {
		src = rand.NewSource(42)
	}
	s := NewSimulation(cfg, rand.New(src), t0)
	s.Drain()
	return s
}

func connect(s *Simulation, key string) {
	s.Connect(models.WalletConnection{PublicKey: key, Provider: "phantom", ConnectedAt: t0})
	s.Drain()
}

func TestSimulationStartsAtFloor(t *testing.T) {
	s := NewSimulation(DefaultSimulationConfig(), rand.New(rand.NewSource(1)), t0)

	r := s.Round()
	if r.Number != 1 || r.RemainingSeconds != 480 || !r.Active || r.ID == "" {
		t.Fatalf("initial round = %+v", r)
	}
	if p := s.Price(); p.Current != 0.00004 || p.Floor != 0.00004 {
		t.Fatalf("initial price = %+v", p)
	}
	if out := s.Drain(); !out.DisplayChanged {
		t.Error("initial state should be shown")
	}
}

func TestTickResolvesExactlyOnceAfterFullRound(t *testing.T) {
	s := newTestSimulation(DefaultSimulationConfig(), nil)
	firstID := s.Round().ID

	for i := 1; i < 480; i++ {
		s.Tick(t0.Add(time.Duration(i) * time.Second))
	}
	if got := s.Round().RemainingSeconds; got != 1 {
		t.Fatalf("after 479 ticks remaining = %d, want 1", got)
	}
	if s.Round().Number != 1 {
		t.Fatal("round resolved early")
	}
	s.Drain()

	s.Tick(t0.Add(480 * time.Second))
	out := s.Drain()

	r := s.Round()
	if r.Number != 2 || r.RemainingSeconds != 480 || !r.Active {
		t.Fatalf("after resolution round = %+v", r)
	}
	if r.ID == firstID {
		t.Error("round id should change")
	}
	if len(out.Notices) != 1 || out.Notices[0].Message != models.MsgNoVotes {
		t.Fatalf("notices = %+v, want the no-votes notice", out.Notices)
	}
	var resolved int
	for _, e := range out.Events {
		if e.Type == models.EventRoundResolved {
			resolved++
			if e.Outcome != models.OutcomeNone || e.Round != 1 || e.RoundID != firstID {
				t.Errorf("round_resolved event = %+v", e)
			}
		}
	}
	if resolved != 1 {
		t.Errorf("round_resolved events = %d, want 1", resolved)
	}
	if s.Price().Current != 0.00004 {
		t.Errorf("price changed without votes: %v", s.Price().Current)
	}
}

func TestResolutionAppliesJump(t *testing.T) {
	tests := []struct {
		name    string
		votes   []models.VoteOption
		notice  string
		outcome models.Outcome
		lo, hi  float64
	}{
		{name: "pump wins", votes: []models.VoteOption{models.VotePump}, notice: models.MsgPumpWins, outcome: models.OutcomePump, lo: 1.10, hi: 1.30},
		{name: "dump wins", votes: []models.VoteOption{models.VoteDump}, notice: models.MsgDumpWins, outcome: models.OutcomeDump, lo: 0.70, hi: 0.90},
		{name: "tie goes to dump", votes: []models.VoteOption{models.VotePump, models.VoteDump}, notice: models.MsgDumpWins, outcome: models.OutcomeDump, lo: 0.70, hi: 0.90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSimulationConfig()
			cfg.VoteDuration = 1
			cfg.VotePolicy = config.VotePolicyPermissive
			s := newTestSimulation(cfg, nil)
			// start well above the floor so the dump path is not clamped
			s.price.Current = 1.0
			connect(s, "ABCDEFGH")

			for _, v := range tt.votes {
				if err := s.CastVote(v, t0); err != nil {
					t.Fatalf("CastVote(%s): %v", v, err)
				}
			}
			s.Drain()

			s.Tick(t0.Add(time.Second))
			out := s.Drain()

			if len(out.Notices) != 1 || out.Notices[0].Message != tt.notice {
				t.Fatalf("notices = %+v, want %q", out.Notices, tt.notice)
			}
			got := s.Price().Current
			if got < tt.lo || got >= tt.hi {
				t.Errorf("price = %v, want in [%v, %v)", got, tt.lo, tt.hi)
			}
			if tally := s.Tally(); tally.Total() != 0 || tally.HasVoted("ABCDEFGH") {
				t.Errorf("tally not reset: %+v", tally)
			}
			if !out.ChartChanged {
				t.Error("jump should append to the chart")
			}
			var outcome models.Outcome
			for _, e := range out.Events {
				if e.Type == models.EventRoundResolved {
					outcome = e.Outcome
				}
			}
			if outcome != tt.outcome {
				t.Errorf("outcome = %q, want %q", outcome, tt.outcome)
			}
		})
	}
}

func TestPricePathsWithFixedDraws(t *testing.T) {
	t.Run("pump with U=0.5 is +20%", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), halfSource)
		s.ApplyPump(t0)
		if got, want := s.Price().Current, 0.00004*1.2; !approx(got, want) {
			t.Errorf("price = %v, want %v", got, want)
		}
	})

	t.Run("drift with U=0.5 is +0.4%", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), halfSource)
		s.ApplyDrift(t0)
		if got, want := s.Price().Current, 0.00004*1.004; !approx(got, want) {
			t.Errorf("price = %v, want %v", got, want)
		}
	})

	t.Run("dump clamps to floor", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), fixedSource{v: 0})
		s.ApplyDump(t0)
		if got := s.Price().Current; got != 0.00004 {
			t.Errorf("price = %v, want floor", got)
		}
	})

	t.Run("downward drift clamps to floor", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), fixedSource{v: 0})
		s.ApplyDrift(t0)
		if got := s.Price().Current; got != 0.00004 {
			t.Errorf("price = %v, want floor", got)
		}
	})
}

func TestDriftStaysInRangeAndAboveFloor(t *testing.T) {
	s := newTestSimulation(DefaultSimulationConfig(), rand.NewSource(7))
	s.price.Current = 1.0

	for i := 0; i < 1000; i++ {
		before := s.Price().Current
		s.ApplyDrift(t0)
		after := s.Price().Current
		if after < s.Price().Floor {
			t.Fatalf("price %v below floor", after)
		}
		if after > before {
			if r := after / before; r >= 1.014 {
				t.Fatalf("drift ratio %v out of range", r)
			}
		} else if after > s.Price().Floor {
			if r := after / before; r < 0.994-1e-12 {
				t.Fatalf("drift ratio %v out of range", r)
			}
		}
	}
}

func TestChartKeepsLastTenSamples(t *testing.T) {
	s := newTestSimulation(DefaultSimulationConfig(), nil)

	for i := 0; i < 15; i++ {
		s.ApplyDrift(t0.Add(time.Duration(i) * time.Minute))
	}

	f := s.Chart()
	if len(f.Labels) != 10 || len(f.Values) != 10 {
		t.Fatalf("chart has %d labels and %d values, want 10", len(f.Labels), len(f.Values))
	}
	if f.Labels[0] != "12:05" || f.Labels[9] != "12:14" {
		t.Errorf("labels = %v, want 12:05..12:14", f.Labels)
	}
	if f.Values[9] != s.Price().Current {
		t.Errorf("last value = %v, want current price %v", f.Values[9], s.Price().Current)
	}
	if f.TickDecimals != 5 {
		t.Errorf("tick decimals = %d, want 5", f.TickDecimals)
	}
}

func TestCastVoteRejections(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), nil)
		err := s.CastVote(models.VotePump, t0)
		if !errors.Is(err, models.ErrNotConnected) {
			t.Fatalf("err = %v, want ErrNotConnected", err)
		}
		out := s.Drain()
		if len(out.Notices) != 1 || out.Notices[0].Message != models.MsgNotConnected {
			t.Errorf("notices = %+v", out.Notices)
		}
		if s.Tally().Total() != 0 {
			t.Error("vote counted")
		}
	})

	t.Run("voting closed", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), nil)
		connect(s, "ABCDEFGH")
		s.round.Active = false
		err := s.CastVote(models.VoteDump, t0)
		if !errors.Is(err, models.ErrVotingClosed) {
			t.Fatalf("err = %v, want ErrVotingClosed", err)
		}
		if out := s.Drain(); len(out.Notices) != 1 || out.Notices[0].Message != models.MsgVotingClosed {
			t.Errorf("notices = %+v", out.Notices)
		}
	})

	t.Run("already voted", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), nil)
		connect(s, "ABCDEFGH")
		if err := s.CastVote(models.VotePump, t0); err != nil {
			t.Fatalf("first vote: %v", err)
		}
		err := s.CastVote(models.VoteDump, t0)
		if !errors.Is(err, models.ErrAlreadyVoted) {
			t.Fatalf("err = %v, want ErrAlreadyVoted", err)
		}
		if tally := s.Tally(); tally.Pump != 1 || tally.Dump != 0 {
			t.Errorf("tally = %+v", tally)
		}
	})

	t.Run("invalid option", func(t *testing.T) {
		s := newTestSimulation(DefaultSimulationConfig(), nil)
		connect(s, "ABCDEFGH")
		if err := s.CastVote("moon", t0); !errors.Is(err, models.ErrInvalidOption) {
			t.Fatalf("err = %v, want ErrInvalidOption", err)
		}
		if out := s.Drain(); len(out.Notices) != 0 {
			t.Errorf("unexpected notices %+v", out.Notices)
		}
	})
}

func TestPermissivePolicyCountsEveryVote(t *testing.T) {
	cfg := DefaultSimulationConfig()
	cfg.VotePolicy = config.VotePolicyPermissive
	s := newTestSimulation(cfg, nil)
	connect(s, "ABCDEFGH")

	for _, v := range []models.VoteOption{models.VotePump, models.VotePump, models.VotePump, models.VoteDump} {
		if err := s.CastVote(v, t0); err != nil {
			t.Fatalf("CastVote: %v", err)
		}
	}
	d := BuildDisplay(s, t0)
	if d.PumpPct != "75%" || d.DumpPct != "25%" {
		t.Errorf("percentages = %s/%s, want 75%%/25%%", d.PumpPct, d.DumpPct)
	}
}

func TestConnectOnlyOnce(t *testing.T) {
	s := newTestSimulation(DefaultSimulationConfig(), nil)

	if !s.Connect(models.WalletConnection{PublicKey: "FIRSTKEY1", ConnectedAt: t0}) {
		t.Fatal("first connect should change state")
	}
	if s.Connect(models.WalletConnection{PublicKey: "SECONDKEY", ConnectedAt: t0}) {
		t.Fatal("second connect should be a no-op")
	}
	if got := s.Wallet().PublicKey; got != "FIRSTKEY1" {
		t.Errorf("wallet = %q, want FIRSTKEY1", got)
	}
	out := s.Drain()
	var connected int
	for _, e := range out.Events {
		if e.Type == models.EventWalletConnected {
			connected++
		}
	}
	if connected != 1 {
		t.Errorf("wallet_connected events = %d, want 1", connected)
	}
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1e-12
}
