package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestVoteTallyPercentages(t *testing.T) {
	cases := []struct {
		pump, dump         int
		wantPump, wantDump int
	}{
		{0, 0, 0, 0},
		{3, 1, 75, 25},
		{1, 0, 100, 0},
		{1, 2, 33, 67},
		{1, 1, 50, 50},
		{1, 7, 13, 88}, // 12.5 rounds half up
	}
	for _, c := range cases {
		tally := NewVoteTally()
		for i := 0; i < c.pump; i++ {
			tally.Add(fmt.Sprintf("p%d", i), VotePump)
		}
		for i := 0; i < c.dump; i++ {
			tally.Add(fmt.Sprintf("d%d", i), VoteDump)
		}
		p, d := tally.Percentages()
		if p != c.wantPump || d != c.wantDump {
			t.Errorf("Percentages(%d,%d) = %d,%d, want %d,%d", c.pump, c.dump, p, d, c.wantPump, c.wantDump)
		}
	}
}

func TestVoteTallyOutcome(t *testing.T) {
	tally := NewVoteTally()
	if got := tally.Outcome(); got != OutcomeNone {
		t.Fatalf("empty Outcome = %s, want none", got)
	}
	tally.Add("a", VotePump)
	tally.Add("b", VoteDump)
	if got := tally.Outcome(); got != OutcomeDump {
		t.Fatalf("tie Outcome = %s, want dump", got)
	}
	tally.Add("c", VotePump)
	if got := tally.Outcome(); got != OutcomePump {
		t.Fatalf("Outcome = %s, want pump", got)
	}

	if !tally.HasVoted("a") {
		t.Errorf("HasVoted(a) = false")
	}
	tally.Reset()
	if tally.Total() != 0 || tally.HasVoted("a") {
		t.Errorf("Reset left total=%d voted(a)=%v", tally.Total(), tally.HasVoted("a"))
	}
}

func TestPriceStateClampAndGrowth(t *testing.T) {
	p := PriceState{Current: 0.00003, Floor: 0.00004}
	p.Clamp()
	if p.Current != 0.00004 {
		t.Fatalf("Clamp: current = %v, want floor", p.Current)
	}
	if g := p.Growth(); g != 0 {
		t.Errorf("Growth at floor = %v, want 0", g)
	}
	p.Current = 0.00005
	if g := p.Growth(); g < 24.999 || g > 25.001 {
		t.Errorf("Growth = %v, want 25", g)
	}
}

func TestChartSeriesEvictsOldest(t *testing.T) {
	s := NewChartSeries(10)
	for i := 0; i < 11; i++ {
		s.Append(ChartPoint{Label: fmt.Sprintf("L%d", i), Value: float64(i)})
	}
	if s.Len() != 10 {
		t.Fatalf("Len = %d, want 10", s.Len())
	}
	pts := s.Points()
	if pts[0].Label != "L1" || pts[9].Label != "L10" {
		t.Errorf("window = %s..%s, want L1..L10", pts[0].Label, pts[9].Label)
	}

	f := s.Frame(5)
	if len(f.Labels) != 10 || f.Values[9] != 10 || f.TickDecimals != 5 {
		t.Errorf("Frame = %+v", f)
	}
}

func TestConnectLabel(t *testing.T) {
	if got := ConnectLabel("ABCDEFGH"); got != "Connected: ABCD...EFGH" {
		t.Errorf("ConnectLabel = %q", got)
	}
	if got := ConnectLabel("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"); got != "Connected: 7xKX...gAsU" {
		t.Errorf("ConnectLabel = %q", got)
	}
}

func TestNoticeFor(t *testing.T) {
	cases := []struct {
		err  error
		kind NoticeKind
		msg  string
	}{
		{ErrNotConnected, NoticeNotConnected, MsgNotConnected},
		{fmt.Errorf("vote: %w", ErrVotingClosed), NoticeVotingClosed, MsgVotingClosed},
		{ErrProviderMissing, NoticeProviderUnavailable, MsgProviderMissing},
		{ErrProviderNotKnown, NoticeProviderUnavailable, MsgProviderNotKnown},
	}
	for _, c := range cases {
		kind, msg, ok := NoticeFor(c.err)
		if !ok || kind != c.kind || msg != c.msg {
			t.Errorf("NoticeFor(%v) = %s,%q,%v want %s,%q", c.err, kind, msg, ok, c.kind, c.msg)
		}
	}
	if _, _, ok := NoticeFor(ErrUserRejected); ok {
		t.Errorf("user rejection should not produce a notice")
	}
	if !errors.Is(ErrProviderNotKnown, ErrProviderUnavailable) {
		t.Errorf("ErrProviderNotKnown must wrap ErrProviderUnavailable")
	}
}
