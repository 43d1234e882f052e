package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"PumpDump/internal/domain/models"
	"PumpDump/pkg/cache"
)

func TestBuildEventQuery(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    models.EventFilter
		wantWhere string
		wantArgs  int
		wantLimit int
	}{
		{name: "no filter", filter: models.EventFilter{}, wantArgs: 1, wantLimit: DefaultQueryLimit},
		{name: "type", filter: models.EventFilter{Type: models.EventVoteCast, Limit: 5}, wantWhere: "WHERE type = ?", wantArgs: 2, wantLimit: 5},
		{name: "type and since", filter: models.EventFilter{Type: models.EventRoundResolved, Since: since, Limit: 20}, wantWhere: "WHERE type = ? AND at >= ?", wantArgs: 3, wantLimit: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := buildEventQuery("events", tt.filter)
			if !strings.HasPrefix(q, "SELECT "+eventColumns+" FROM events") {
				t.Errorf("unexpected query prefix: %s", q)
			}
			if tt.wantWhere != "" && !strings.Contains(q, tt.wantWhere) {
				t.Errorf("query %q does not contain %q", q, tt.wantWhere)
			}
			if tt.wantWhere == "" && strings.Contains(q, "WHERE") {
				t.Errorf("query %q should have no WHERE clause", q)
			}
			if !strings.HasSuffix(q, "ORDER BY at DESC LIMIT ?") {
				t.Errorf("query %q should end with the limit clause", q)
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("args = %d, want %d", len(args), tt.wantArgs)
			}
			if got := args[len(args)-1]; got != tt.wantLimit {
				t.Errorf("limit = %v, want %d", got, tt.wantLimit)
			}
		})
	}
}

func TestEventArgsMatchColumns(t *testing.T) {
	e := &models.Event{
		ID:      "e1",
		Type:    models.EventRoundResolved,
		Round:   3,
		RoundID: "r3",
		Price:   0.000052,
		Outcome: models.OutcomePump,
		At:      time.Now(),
	}
	args := eventArgs(e)
	if len(args) != len(strings.Split(eventColumns, ",")) {
		t.Fatalf("args = %d, columns = %d", len(args), len(strings.Split(eventColumns, ",")))
	}
	if args[1] != "round_resolved" || args[8] != "pump" {
		t.Errorf("type/outcome args = %v/%v", args[1], args[8])
	}
	if args[2] != uint32(3) {
		t.Errorf("round arg = %v (%T)", args[2], args[2])
	}
}

func TestCacheSnapshotStoreRoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSnapshotStore(mc, time.Minute)
	ctx := context.Background()

	if _, err := store.LoadDisplay(ctx); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("LoadDisplay before save: err = %v, want ErrCacheMiss", err)
	}

	d := models.Display{Countdown: "00:07:59", Price: "$0.00004", PumpPct: "50%", DumpPct: "50%", Round: 1}
	if err := store.SaveDisplay(ctx, d); err != nil {
		t.Fatalf("SaveDisplay: %v", err)
	}
	got, err := store.LoadDisplay(ctx)
	if err != nil {
		t.Fatalf("LoadDisplay: %v", err)
	}
	if got.Countdown != d.Countdown || got.Price != d.Price || got.Round != 1 {
		t.Errorf("LoadDisplay = %+v, want %+v", got, d)
	}

	f := models.ChartFrame{Labels: []string{"12:00", "12:01"}, Values: []float64{0.00004, 0.000041}, TickDecimals: 5}
	if err := store.SaveChart(ctx, f); err != nil {
		t.Fatalf("SaveChart: %v", err)
	}
	gotF, err := store.LoadChart(ctx)
	if err != nil {
		t.Fatalf("LoadChart: %v", err)
	}
	if len(gotF.Values) != 2 || gotF.Labels[1] != "12:01" || gotF.TickDecimals != 5 {
		t.Errorf("LoadChart = %+v", gotF)
	}
}
