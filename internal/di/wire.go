//go:build wireinject
// +build wireinject

package di

import (
	"PumpDump/pkg/config"
	"PumpDump/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideClock,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideEventStorage,
		ProvideEventPublisher,
		ProvideSnapshotStore,

		// Event and snapshot sinks
		ProvideEventProcessor,
		ProvideEventPipeline,
		ProvideSnapshotWriter,
		ProvideEventArchiver,

		// Game
		ProvideHub,
		ProvideSimulation,
		ProvideRoundEngine,
		ProvideWalletConnector,
		ProvideChallenges,
		ProvideRateLimiter,
		ProvideGameHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
