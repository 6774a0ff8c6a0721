//go:build wireinject
// +build wireinject

package di

import (
	"PricePulse/pkg/config"
	"PricePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideStorage,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideResponseCache,

		// Pricing services
		ProvideHolder,
		ProvideResolver,
		ProvideFitter,
		ProvideForecaster,
		ProvideDecisionEngine,
		ProvideEventPublisher,

		// Use cases
		ProvidePriceAdvisor,
		ProvideCatalog,
		ProvideStoreLoader,
		ProvideIngestPipeline,
		ProvideKafkaPricesHandler,

		// Transport
		ProvidePricesHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
