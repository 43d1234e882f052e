package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"PumpDump/internal/handler/api"
	mid "PumpDump/internal/middleware"
	"PumpDump/internal/service/hub"
	"PumpDump/internal/service/ratelimit"
	"PumpDump/internal/usecase"
	"PumpDump/pkg/cache"
	pkgch "PumpDump/pkg/clickhouse"
	"PumpDump/pkg/config"
	xhttp "PumpDump/pkg/http"
	pkgkafka "PumpDump/pkg/kafka"
	applogger "PumpDump/pkg/logger"

	kafkago "github.com/segmentio/kafka-go"
)

// Deps are the components the App starts and stops. Consumer, Archiver,
// Producer and ClickHouse are nil when the configuration does not use them.
type Deps struct {
	Config     *config.Config
	Logger     *applogger.Logger
	Engine     *usecase.RoundEngine
	Pipeline   *mid.EventPipeline
	Snapshots  *usecase.SnapshotWriter
	Hub        *hub.Hub
	Handler    *api.GameEchoHandler
	Limiter    *ratelimit.Limiter
	Processor  *usecase.EventProcessor
	Consumer   *pkgkafka.Consumer
	Archiver   *usecase.EventArchiver
	Producer   *pkgkafka.Producer
	ClickHouse *pkgch.Client
	Cache      cache.Service
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	log        *applogger.Logger
	httpServer *xhttp.Server
	wg         sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	l := d.Logger
	if l == nil {
		l = applogger.Nop()
	}
	return &App{Deps: d, log: l}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is cancelled, then
// shuts down in reverse dependency order.
func (a *App) RunContext(ctx context.Context) error {
	cfg := a.Config

	if a.Producer != nil && cfg.Kafka.LogsTopic != "" {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      a.Producer,
		})
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.Consumer != nil && a.Archiver != nil {
		a.Consumer.RegisterHandler(a.Archiver)
		a.Consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, km kafkago.Message, _ []byte, err error) {
				a.log.Warn("archive failed",
					applogger.String("topic", topic),
					applogger.Int64("offset", km.Offset),
					applogger.Error(err),
				)
			},
		})
		if err := a.Consumer.Start(runCtx); err != nil {
			return fmt.Errorf("start archiver: %w", err)
		}
		a.log.Info("event archiver started", applogger.String("topic", a.Archiver.Topic()))
	}

	engineCtx, stopEngine := context.WithCancel(runCtx)
	defer stopEngine()
	a.spawn("round engine", func() error { return a.Engine.Run(engineCtx) })
	a.spawn("event pipeline", func() error { return a.Pipeline.Run(runCtx) })
	a.spawn("snapshot writer", func() error { return a.Snapshots.Run(runCtx) })
	if a.Limiter != nil {
		a.spawn("rate limiter", func() error { return a.Limiter.Run(runCtx, cfg.RateLimit.PruneInterval) })
	}

	a.httpServer = xhttp.NewServer(a.Handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.metricsPath()),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTrustProxy(cfg.Server.TrustProxy),
		xhttp.WithLogger(a.log.With(applogger.String("component", "http"))),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("pumpdump started",
		applogger.String("backend", cfg.Backend.Type),
		applogger.String("cache", cfg.Cache.Type),
		applogger.String("vote_policy", cfg.Game.VotePolicy),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(stopEngine, cancel)
}

func (a *App) spawn(name string, fn func() error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(); err != nil {
			a.log.Error(name+" error", applogger.Error(err))
		}
	}()
}

func (a *App) metricsPath() string {
	if !a.Config.Metrics.Enabled {
		return ""
	}
	return a.Config.Metrics.Path
}

// shutdown stops intake first, then the engine, then flushes what the engine
// produced before closing infrastructure clients.
func (a *App) shutdown(stopEngine, stopWorkers context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	stopEngine()
	select {
	case <-a.Engine.Done():
	case <-ctx.Done():
		a.log.Warn("round engine did not stop in time")
	}
	a.Hub.Close()

	stopWorkers()
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("workers did not drain in time", applogger.Int("pending_events", a.Pipeline.Pending()))
	}

	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.log.RemoveCollector()

	a.Processor.Close()
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.ClickHouse != nil {
		if err := a.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
