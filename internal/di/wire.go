//go:build wireinject
// +build wireinject

package di

import (
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/config"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStore,
		ProvideKafkaProducer,
		ProvideEventPublisher,
		ProvideKafkaConsumer,

		// Upstream sources and section adapters
		ProvideCoinGecko,
		ProvidePriceCache,
		ProvideSelector,
		ProvideAdapters,
		ProvideLimits,

		// Use cases
		ProvideDashboardBuilder,
		ProvideSectionRefresher,
		ProvideOnboardingService,
		ProvideVoteService,
		ProvidePrewarmHandler,

		// Transport
		ProvideDashboardHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
