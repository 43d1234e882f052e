package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"PumpDump/internal/domain/models"
	applogger "PumpDump/pkg/logger"
)

type fakePublisher struct {
	published []*models.Event
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, e *models.Event) error {
	return p.PublishBatch(ctx, []*models.Event{e})
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []*models.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, events...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeStorage struct {
	stored []*models.Event
	err    error
}

func (s *fakeStorage) Init(context.Context) error { return nil }

func (s *fakeStorage) Store(ctx context.Context, e *models.Event) error {
	return s.StoreBatch(ctx, []*models.Event{e})
}

func (s *fakeStorage) StoreBatch(_ context.Context, events []*models.Event) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, events...)
	return nil
}

func (s *fakeStorage) Query(context.Context, models.EventFilter) ([]*models.Event, error) {
	return s.stored, nil
}

func (s *fakeStorage) Health(context.Context) error { return nil }
func (s *fakeStorage) Close() error { return nil }

func sampleEvents() []*models.Event {
	return []*models.Event{
		{ID: "1", Type: models.EventPriceChanged, Price: 0.00004, At: t0},
		{ID: "2", Type: models.EventVoteCast, Option: models.VotePump, At: t0},
	}
}

func TestEventProcessorRoutesByBackend(t *testing.T) {
	tests := []struct {
		backend   string
		wantPub   int
		wantStore int
	}{
		{backend: BackendKafka, wantPub: 2},
		{backend: BackendClickHouse, wantStore: 2},
		{backend: BackendNone},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			pub, store, m := &fakePublisher{}, &fakeStorage{}, newStubMetrics()
			p := NewEventProcessor(pub, store, m, tt.backend)

			if err := p.ProcessBatch(context.Background(), sampleEvents()); err != nil {
				t.Fatalf("ProcessBatch: %v", err)
			}
			if len(pub.published) != tt.wantPub || len(store.stored) != tt.wantStore {
				t.Errorf("published=%d stored=%d, want %d/%d", len(pub.published), len(store.stored), tt.wantPub, tt.wantStore)
			}
			if tt.backend != BackendNone {
				if got := m.count("sent:" + tt.backend + ":vote_cast"); got != 1 {
					t.Errorf("sent metric = %d", got)
				}
			}
		})
	}
}

func TestEventProcessorErrors(t *testing.T) {
	m := newStubMetrics()
	broker := errors.New("broker down")
	p := NewEventProcessor(&fakePublisher{err: broker}, nil, m, BackendKafka)

	err := p.Process(context.Background(), sampleEvents()[0])
	if !errors.Is(err, broker) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
	if got := m.count("error:process_batch"); got != 1 {
		t.Errorf("error metric = %d", got)
	}

	if err := NewEventProcessor(nil, nil, m, "carrier-pigeon").Process(context.Background(), sampleEvents()[0]); err == nil {
		t.Error("unknown backend accepted")
	}
	if err := p.Process(context.Background(), nil); err == nil {
		t.Error("nil event accepted")
	}
}

func TestEventArchiverStoresDecodedEvents(t *testing.T) {
	store, m := &fakeStorage{}, newStubMetrics()
	a := NewEventArchiver("pumpdump.events", store, m)

	if a.Topic() != "pumpdump.events" {
		t.Errorf("Topic() = %q", a.Topic())
	}

	b, _ := json.Marshal(&models.Event{ID: "e1", Type: models.EventRoundResolved, Round: 4, Outcome: models.OutcomeDump, At: time.Now()})
	if err := a.Handle(context.Background(), b); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.stored) != 1 || store.stored[0].Outcome != models.OutcomeDump || store.stored[0].Round != 4 {
		t.Errorf("stored = %+v", store.stored)
	}

	if err := a.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Error("garbage accepted")
	}
	if err := a.Handle(context.Background(), []byte(`{"id":"x","type":"teleport"}`)); err == nil {
		t.Error("unknown type accepted")
	}
	if got := m.count("error:consumer_unmarshal") + m.count("error:consumer_invalid"); got != 2 {
		t.Errorf("error metrics = %d, want 2", got)
	}
}

type recordingSnapshots struct {
	mu       sync.Mutex
	displays []models.Display
	charts   []models.ChartFrame
	saved    chan struct{}
}

func (s *recordingSnapshots) SaveDisplay(_ context.Context, d models.Display) error {
	s.mu.Lock()
	s.displays = append(s.displays, d)
	s.mu.Unlock()
	s.saved <- struct{}{}
	return nil
}

func (s *recordingSnapshots) LoadDisplay(context.Context) (models.Display, error) {
	return models.Display{}, nil
}

func (s *recordingSnapshots) SaveChart(_ context.Context, f models.ChartFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charts = append(s.charts, f)
	return nil
}

func (s *recordingSnapshots) LoadChart(context.Context) (models.ChartFrame, error) {
	return models.ChartFrame{}, nil
}

func TestSnapshotWriterKeepsLatest(t *testing.T) {
	store := &recordingSnapshots{saved: make(chan struct{}, 16)}
	w := NewSnapshotWriter(store, newStubMetrics(), applogger.Nop(), time.Second)

	w.Offer(models.Display{Countdown: "00:08:00"}, nil)
	w.Offer(models.Display{Countdown: "00:07:59"}, &models.ChartFrame{Values: []float64{0.00004}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.displays) != 1 || store.displays[0].Countdown != "00:07:59" {
		t.Errorf("displays = %+v, want only the latest", store.displays)
	}
	if len(store.charts) != 1 {
		t.Errorf("charts = %d, want 1", len(store.charts))
	}
}

func TestSnapshotWriterWritesWhileRunning(t *testing.T) {
	store := &recordingSnapshots{saved: make(chan struct{}, 16)}
	w := NewSnapshotWriter(store, newStubMetrics(), applogger.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	w.Offer(models.Display{Round: 7}, nil)
	select {
	case <-store.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot not saved")
	}
	cancel()
	<-done
}
