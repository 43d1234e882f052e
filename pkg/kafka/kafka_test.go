package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy")

	err := p.PublishBatch(context.Background(), "events", []Message{
		{Key: []byte("round-1"), Value: map[string]int{"pump": 3}},
		{Value: "raw"},
		{Value: []byte("bytes")},
	})
	if err != nil {
		t.Fatalf("PublishBatch: %v", err)
	}
	if len(w.msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(w.msgs))
	}

	var decoded map[string]int
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil || decoded["pump"] != 3 {
		t.Errorf("first value = %s, want JSON with pump=3", w.msgs[0].Value)
	}
	if string(w.msgs[0].Key) != "round-1" || w.msgs[0].Topic != "events" {
		t.Errorf("first message key/topic = %q/%q", w.msgs[0].Key, w.msgs[0].Topic)
	}
	if string(w.msgs[1].Value) != "raw" || string(w.msgs[2].Value) != "bytes" {
		t.Errorf("string/bytes values not passed through: %q %q", w.msgs[1].Value, w.msgs[2].Value)
	}
}

func TestProducerWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "snappy")

	err := p.PublishMessage(context.Background(), "logs", []string{"x"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping %v", err, boom)
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of (0, %v]", attempt, d, max)
		}
	}
}

func TestHookChainOrderAndPanic(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after:"+name)
			},
		}
	}

	chain := NewHookChain(mk("a"), nil, mk("b"))
	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(">"))
	if err != nil {
		t.Fatalf("BeforeHandle: %v", err)
	}
	if string(data) != ">ab" {
		t.Errorf("data = %q, want %q", data, ">ab")
	}
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, data, nil)

	want := []string{"before:a", "before:b", "after:b", "after:a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	panicky := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("bad hook")
	}}
	_, _, _, err = NewHookChain(panicky).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("err = %v, want HookError ERR_PANIC", err)
	}
}
