package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"PumpDump/internal/domain/models"
	"PumpDump/internal/domain/repository"
	pkgkafka "PumpDump/pkg/kafka"
)

const eventColumns = "id, type, round, round_id, price, growth, pump, dump, outcome, option, cause, identity, at"

// DefaultQueryLimit caps history queries that do not set a limit.
const DefaultQueryLimit = 100

// ClickHouseEventStorage implements EventStorage for ClickHouse.
type ClickHouseEventStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseEventStorage creates ClickHouse event storage.
func NewClickHouseEventStorage(db *sql.DB, table string) *ClickHouseEventStorage {
	return &ClickHouseEventStorage{db: db, table: table}
}

var _ repository.EventStorage = (*ClickHouseEventStorage)(nil)

// Schema returns the DDL for the events table.
func (s *ClickHouseEventStorage) Schema() []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id String,
	type LowCardinality(String),
	round UInt32,
	round_id String,
	price Float64,
	growth Float64,
	pump UInt32,
	dump UInt32,
	outcome LowCardinality(String),
	option LowCardinality(String),
	cause LowCardinality(String),
	identity String,
	at DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (type, at)`, s.table)}
}

func (s *ClickHouseEventStorage) Init(ctx context.Context) error {
	for _, stmt := range s.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *ClickHouseEventStorage) Store(ctx context.Context, e *models.Event) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, eventColumns)
	_, err := s.db.ExecContext(ctx, q, eventArgs(e)...)
	return err
}

func (s *ClickHouseEventStorage) StoreBatch(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, e := range events[start:end] {
			if e == nil || e.ID == "" || !e.Type.Valid() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, eventArgs(e)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, eventColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// Query returns events newest first.
func (s *ClickHouseEventStorage) Query(ctx context.Context, f models.EventFilter) ([]*models.Event, error) {
	q, args := buildEventQuery(s.table, f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var (
			e                        models.Event
			typ, outcome, opt, cause string
			round, pump, dump        uint32
		)
		if err := rows.Scan(&e.ID, &typ, &round, &e.RoundID, &e.Price, &e.Growth, &pump, &dump,
			&outcome, &opt, &cause, &e.Identity, &e.At); err != nil {
			return nil, err
		}
		e.Type = models.EventType(typ)
		e.Round = int(round)
		e.Pump = int(pump)
		e.Dump = int(dump)
		e.Outcome = models.Outcome(outcome)
		e.Option = models.VoteOption(opt)
		e.Cause = models.PriceCause(cause)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *ClickHouseEventStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseEventStorage) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

func buildEventQuery(table string, f models.EventFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.Since.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, f.Since.UTC())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	q := fmt.Sprintf("SELECT %s FROM %s", eventColumns, table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY at DESC LIMIT ?"
	args = append(args, limit)
	return q, args
}

func eventArgs(e *models.Event) []interface{} {
	return []interface{}{
		e.ID,
		string(e.Type),
		uint32(e.Round),
		e.RoundID,
		e.Price,
		e.Growth,
		uint32(e.Pump),
		uint32(e.Dump),
		string(e.Outcome),
		string(e.Option),
		string(e.Cause),
		e.Identity,
		e.At.UTC(),
	}
}

// KafkaEventPublisher implements EventPublisher for Kafka. Events are keyed by
// round so one round's events land on one partition in order.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates Kafka publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

var _ repository.EventPublisher = (*KafkaEventPublisher)(nil)

func (p *KafkaEventPublisher) Publish(ctx context.Context, e *models.Event) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.RoundID), e)
}

func (p *KafkaEventPublisher) PublishBatch(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.RoundID), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaEventPublisher) Close() error {
	return nil // producer is shared with the log collector and closed by the app
}
