package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordVote("pump")
	r.RecordVote("pump")
	r.RecordVote("dump")
	r.RecordRound("none")
	r.RecordPrice(0.00004)
	r.RecordEventDropped("buffer_full")

	if got := testutil.ToFloat64(r.votes.WithLabelValues("pump")); got != 2 {
		t.Errorf("pump votes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.rounds.WithLabelValues("none")); got != 1 {
		t.Errorf("rounds{none} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.price); got != 0.00004 {
		t.Errorf("price = %v, want 0.00004", got)
	}
	if got := testutil.ToFloat64(r.eventsDrop.WithLabelValues("buffer_full")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestRecorderSeparateRegistries(t *testing.T) {
	// two recorders on separate registries must not collide
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
