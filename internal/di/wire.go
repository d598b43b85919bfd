//go:build wireinject
// +build wireinject

package di

import (
	"PowerPull/pkg/config"
	"PowerPull/pkg/server"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Metrics
		ProvideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		ProvideMetrics,
		ProvideViewMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideSnapshotStore,
		ProvideRedisClient,
		ProvideGenerationStore,
		ProvideImportLock,
		ProvideLocation,

		// Sources and engine
		ProvideFlatFileSource,
		ProvideSources,
		ProvideEngine,

		// Use cases
		ProvideViewTracker,
		ProvideSeriesViewUseCase,

		// Ingestion
		ProvideIngestBatcher,
		ProvideKafkaConsumer,
		ProvideScheduler,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
