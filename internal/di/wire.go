//go:build wireinject
// +build wireinject

package di

import (
	"LunarPull/internal/usecase"
	"LunarPull/pkg/config"
	"LunarPull/pkg/server"

	"github.com/google/wire"
)

// coreSet is shared by the batch pipeline and the read API.
var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideBytesCache,
	ProvideUSNOClient,
	ProvideResolver,
	ProvideSQLClient,
	ProvideAnalysisStore,
)

// InitializeRunner wires the batch run. The returned cleanup closes every
// infrastructure client.
func InitializeRunner(cfg *config.Config) (*usecase.Runner, func(), error) {
	wire.Build(
		coreSet,

		// Metrics
		ProvideRecorder,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideLogCollector,

		// Repositories
		ProvidePriceStore,
		ProvidePriceSource,
		ProvidePublisher,
		ProvideBlobStore,

		// Services and use case
		ProvideStatsEngine,
		ProvideRenderer,
		ProvidePipelineConfig,
		ProvidePipeline,
		ProvideRunner,
	)
	return nil, nil, nil
}

// InitializeAPI wires the read API server.
func InitializeAPI(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideResultsUseCase,
		ProvideAnalysisHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
