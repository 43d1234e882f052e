package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PumpDump/internal/domain/models"
	domrepo "PumpDump/internal/domain/repository"
	pkgkafka "PumpDump/pkg/kafka"
)

// EventArchiver consumes the events topic and writes each event to storage.
type EventArchiver struct {
	topic   string
	storage domrepo.EventStorage
	metrics domrepo.Metrics
}

func NewEventArchiver(topic string, storage domrepo.EventStorage, metrics domrepo.Metrics) *EventArchiver {
	return &EventArchiver{topic: topic, storage: storage, metrics: metrics}
}

func (h *EventArchiver) Topic() string { return h.topic }

func (h *EventArchiver) Handle(ctx context.Context, b []byte) error {
	var e models.Event
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode event: %w", err)
	}
	if e.ID == "" || !e.Type.Valid() {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid event %q of type %q", e.ID, e.Type)
	}
	if !e.At.IsZero() {
		h.metrics.RecordLatency("archive_e2e", time.Since(e.At).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &e)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventSent(BackendClickHouse, string(e.Type))
	return nil
}

var _ pkgkafka.MessageHandler = (*EventArchiver)(nil)
