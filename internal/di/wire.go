//go:build wireinject
// +build wireinject

package di

import (
	"CandlePull/pkg/config"
	"CandlePull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application with a
// cleanup that closes the store, cache and publisher.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure
		ProvideCandleStore,
		ProvideCache,
		ProvideStatusStore,
		ProvideRunLock,
		ProvidePublisher,
		ProvideFetcher,

		// Use cases
		ProvideCandleSync,
		ProvideCandlesUseCase,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
