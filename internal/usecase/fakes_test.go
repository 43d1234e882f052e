package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"PumpDump/internal/domain/models"
)

type stubMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newStubMetrics() *stubMetrics { return &stubMetrics{counts: map[string]int{}} }

func (m *stubMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *stubMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *stubMetrics) RecordVote(option string) { m.inc("vote:" + option) }
func (m *stubMetrics) RecordVoteRejected(reason string) { m.inc("rejected:" + reason) }
func (m *stubMetrics) RecordRound(outcome string) { m.inc("round:" + outcome) }
func (m *stubMetrics) RecordPrice(float64) { m.inc("price") }
func (m *stubMetrics) RecordSubscribers(int) {}
func (m *stubMetrics) RecordEventSent(backend, t string) { m.inc("sent:" + backend + ":" + t) }
func (m *stubMetrics) RecordEventDropped(reason string) { m.inc("dropped:" + reason) }
func (m *stubMetrics) RecordError(kind string) { m.inc("error:" + kind) }
func (m *stubMetrics) RecordLatency(string, float64) {}
func (m *stubMetrics) RecordWalletConnect(result string) { m.inc("wallet:" + result) }

type fakeRenderer struct {
	frames chan models.ChartFrame
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{frames: make(chan models.ChartFrame, 1024)}
}

func (r *fakeRenderer) Render(_ context.Context, f models.ChartFrame) { r.frames <- f }

type fakeSurface struct {
	shows   chan models.Display
	notices chan models.Notice
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		shows:   make(chan models.Display, 1024),
		notices: make(chan models.Notice, 1024),
	}
}

func (s *fakeSurface) Show(_ context.Context, d models.Display) { s.shows <- d }
func (s *fakeSurface) Notify(_ context.Context, n models.Notice) { s.notices <- n }

func (s *fakeSurface) nextShow(t *testing.T) models.Display {
	t.Helper()
	select {
	case d := <-s.shows:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Show")
		return models.Display{}
	}
}

func (s *fakeSurface) nextNotice(t *testing.T) models.Notice {
	t.Helper()
	select {
	case n := <-s.notices:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Notify")
		return models.Notice{}
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []*models.Event
}

func (s *recordingSink) Offer(e *models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return true
}

func (s *recordingSink) ofType(t models.EventType) []*models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fixedSource makes every Float64 draw return the same value.
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (s fixedSource) Seed(int64) {}

// halfSource yields Float64() == 0.5.
var halfSource = fixedSource{v: 1 << 62}
