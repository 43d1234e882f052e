package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *recordingPublisher) snapshot() (string, [][]AggregatedLogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topic, append([][]AggregatedLogEntry(nil), p.batches...)
}

func TestCollectorAggregatesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "logs",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "publish failed", map[string]interface{}{"topic": "events"}, "x.go:1")
	}
	c.AddLog("warn", "slow request", nil, "y.go:2")

	if got := c.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	c.Close()

	topic, batches := pub.snapshot()
	if topic != "logs" {
		t.Errorf("topic = %q, want %q", topic, "logs")
	}
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	counts := map[string]int{}
	for _, e := range batches[0] {
		counts[e.Message] = e.Count
	}
	if counts["publish failed"] != 3 {
		t.Errorf("publish failed count = %d, want 3", counts["publish failed"])
	}
	if counts["slow request"] != 1 {
		t.Errorf("slow request count = %d, want 1", counts["slow request"])
	}
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("component", "engine"))

	l.Info("price changed", Float64("price", 0.00004), Int("round", 2), Error(errors.New("boom")))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "engine" {
		t.Errorf("component = %v, want engine", entry["component"])
	}
	if entry["message"] != "price changed" {
		t.Errorf("message = %v, want price changed", entry["message"])
	}
	if entry["round"] != float64(2) {
		t.Errorf("round = %v, want 2", entry["round"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
}

func TestChildLoggerSeesCollectorAddedLater(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriter(&buf)
	child := root.With(String("component", "pipeline"))

	pub := &recordingPublisher{}
	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})
	child.Warn("batch dropped", Int("events", 3))
	child.Info("not collected")
	root.RemoveCollector()

	_, batches := pub.snapshot()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch with one entry", batches)
	}
	if got := batches[0][0].Message; got != "batch dropped" {
		t.Errorf("message = %q, want batch dropped", got)
	}

	child.Error("after removal")
	if _, batches := pub.snapshot(); len(batches) != 1 {
		t.Errorf("collector still receiving after RemoveCollector")
	}
}
