//go:build wireinject
// +build wireinject

package di

import (
	"HistPull/pkg/config"
	"HistPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage and sinks
		ProvideSeriesStore,
		ProvideClickHouseClient,
		ProvidePublisher,

		// Progress and ops surface
		ProvideTracker,
		ProvideStatusHandler,

		// Collectors
		ProvideSourceRuns,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
