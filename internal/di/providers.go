package di

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"PumpDump/internal/domain/repository"
	"PumpDump/internal/handler/api"
	mid "PumpDump/internal/middleware"
	internalrepo "PumpDump/internal/repository"
	"PumpDump/internal/service/hub"
	"PumpDump/internal/service/ratelimit"
	"PumpDump/internal/service/wallet"
	"PumpDump/internal/usecase"
	"PumpDump/pkg/cache"
	pkgch "PumpDump/pkg/clickhouse"
	"PumpDump/pkg/config"
	pkgkafka "PumpDump/pkg/kafka"
	applogger "PumpDump/pkg/logger"
	"PumpDump/pkg/metrics"
	"PumpDump/pkg/server"

	"github.com/jonboulle/clockwork"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

func ProvideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// ProvideClickHouseClient creates a ClickHouse client when events are stored.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.StoresEvents() {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when brokers are configured.
// It serves the events topic and the aggregated logs topic.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventStorage creates the ClickHouse events table.
func ProvideEventStorage(client *pkgch.Client, cfg *config.Config) (repository.EventStorage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseEventStorage(client.DB(), client.Database()+"."+cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("event storage: %w", err)
	}
	return store, nil
}

// ProvideEventPublisher creates Kafka publisher repository.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil || cfg.Backend.Type != usecase.BackendKafka {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

func ProvideEventProcessor(
	pub repository.EventPublisher,
	store repository.EventStorage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.EventProcessor {
	return usecase.NewEventProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideEventPipeline buffers engine events in front of the processor.
func ProvideEventPipeline(
	proc *usecase.EventProcessor,
	metrics repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *mid.EventPipeline {
	return mid.NewEventPipeline(proc, metrics, log.With(applogger.String("component", "event_pipeline")),
		mid.WithBufferSize(cfg.Backend.BufferSize),
		mid.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		mid.WithTimeout(cfg.Backend.Timeout),
	)
}

// ProvideCache creates the snapshot cache selected by cache.type.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Type {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(64)), nil
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Type == "layered" {
			return cache.NewLayeredCache(rc, time.Second, cache.WithMemoryMaxSize(64)), nil
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Cache.Type)
	}
}

func ProvideSnapshotStore(c cache.Service, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewCacheSnapshotStore(c, cfg.Cache.SnapshotTTL)
}

func ProvideSnapshotWriter(store repository.SnapshotStore, metrics repository.Metrics, log *applogger.Logger) *usecase.SnapshotWriter {
	return usecase.NewSnapshotWriter(store, metrics, log.With(applogger.String("component", "snapshot_writer")), 2*time.Second)
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(cfg *config.Config, metrics repository.Metrics, log *applogger.Logger) *hub.Hub {
	return hub.New(hub.Config{
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		ReadTimeout:    cfg.WebSocket.ReadTimeout,
		PingInterval:   cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}, metrics, log.With(applogger.String("component", "hub")))
}

// ProvideSimulation seeds the game from game.seed, or the clock when unset.
func ProvideSimulation(cfg *config.Config, clock clockwork.Clock) *usecase.Simulation {
	seed := cfg.Game.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}
	return usecase.NewSimulation(usecase.SimulationConfig{
		VoteDuration: int(cfg.Game.VoteDuration / time.Second),
		InitialPrice: cfg.Game.InitialPrice,
		ChartWindow:  cfg.Game.ChartWindow,
		VotePolicy:   cfg.Game.VotePolicy,
	}, rand.New(rand.NewSource(seed)), clock.Now())
}

func ProvideRoundEngine(
	cfg *config.Config,
	sim *usecase.Simulation,
	clock clockwork.Clock,
	h *hub.Hub,
	pipe *mid.EventPipeline,
	writer *usecase.SnapshotWriter,
	metrics repository.Metrics,
	log *applogger.Logger,
) *usecase.RoundEngine {
	opts := []usecase.EngineOption{
		usecase.WithTickInterval(cfg.Game.TickInterval),
		usecase.WithDriftInterval(cfg.Game.DriftInterval),
		usecase.WithSnapshotSink(writer),
	}
	if cfg.Backend.Type != usecase.BackendNone {
		opts = append(opts, usecase.WithEventSink(pipe))
	}
	return usecase.NewRoundEngine(sim, clock, h, h, metrics, log.With(applogger.String("component", "engine")), opts...)
}

func ProvideWalletConnector(engine *usecase.RoundEngine, clock clockwork.Clock, metrics repository.Metrics, log *applogger.Logger) *usecase.WalletConnector {
	return usecase.NewWalletConnector(engine, clock, metrics, log.With(applogger.String("component", "wallet")))
}

func ProvideRateLimiter(cfg *config.Config, clock clockwork.Clock) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec, clock,
		ratelimit.WithMaxKeys(cfg.RateLimit.MaxKeys),
		ratelimit.WithIdle(cfg.RateLimit.IdleTTL),
	)
}

// ProvideChallenges issues the nonces signed wallet handshakes must carry.
func ProvideChallenges(cfg *config.Config, clock clockwork.Clock) *wallet.Challenges {
	return wallet.NewChallenges(clock, cfg.Wallet.ChallengeTTL, cfg.Wallet.MaxPendingNonces)
}

// ProvideGameHandler creates the HTTP handler.
func ProvideGameHandler(
	log *applogger.Logger,
	engine *usecase.RoundEngine,
	wallets *usecase.WalletConnector,
	nonces *wallet.Challenges,
	snapshots repository.SnapshotStore,
	history repository.EventStorage,
	h *hub.Hub,
	limiter *ratelimit.Limiter,
) *api.GameEchoHandler {
	return api.NewGameEchoHandler(log.With(applogger.String("component", "http")), engine, wallets, nonces, snapshots, history, h, limiter)
}

// ProvideKafkaConsumer creates the archiver's consumer when it is enabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Archiver.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Archiver.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Archiver.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Archiver.RetryMax, cfg.Kafka.Archiver.BackoffMin, cfg.Kafka.Archiver.BackoffMax),
		pkgkafka.WithConsumerLogger(log.With(applogger.String("component", "archiver"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideEventArchiver registers handler for the events topic.
func ProvideEventArchiver(store repository.EventStorage, metrics repository.Metrics, cfg *config.Config) *usecase.EventArchiver {
	if store == nil || !cfg.Kafka.Archiver.Enabled {
		return nil
	}
	return usecase.NewEventArchiver(cfg.Kafka.Topic, store, metrics)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.RoundEngine,
	pipe *mid.EventPipeline,
	writer *usecase.SnapshotWriter,
	h *hub.Hub,
	handler *api.GameEchoHandler,
	limiter *ratelimit.Limiter,
	proc *usecase.EventProcessor,
	consumer *pkgkafka.Consumer,
	archiver *usecase.EventArchiver,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	return server.New(server.Deps{
		Config:     cfg,
		Logger:     log,
		Engine:     engine,
		Pipeline:   pipe,
		Snapshots:  writer,
		Hub:        h,
		Handler:    handler,
		Limiter:    limiter,
		Processor:  proc,
		Consumer:   consumer,
		Archiver:   archiver,
		Producer:   producer,
		ClickHouse: chClient,
		Cache:      c,
	})
}
