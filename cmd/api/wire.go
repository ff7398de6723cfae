//go:build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	"github.com/onkernel/stillcam/cmd/api/api"
	"github.com/onkernel/stillcam/cmd/api/config"
	"github.com/onkernel/stillcam/lib/archive"
	"github.com/onkernel/stillcam/lib/live"
	"github.com/onkernel/stillcam/lib/otel"
	"github.com/onkernel/stillcam/lib/providers"
	"github.com/onkernel/stillcam/lib/scheduler"
)

// application struct to hold initialized components
type application struct {
	Ctx         context.Context
	Logger      *slog.Logger
	Config      *config.Config
	Telemetry   *otel.Provider
	Repository  *archive.Repository
	Distributor *live.Distributor
	Scheduler   *scheduler.Scheduler
	ApiService  *api.ApiService
}

// initializeApp is the injector function
func initializeApp(ctx context.Context) (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideConfig,
		providers.ProvideTelemetry,
		providers.ProvideLogConfig,
		providers.ProvideLogger,
		providers.ProvideFreeSpaceChecker,
		providers.ProvideRepository,
		providers.ProvideDistributor,
		providers.ProvideCapturer,
		providers.ProvideScheduler,
		providers.ProvideResourceLoader,
		api.New,
		wire.Struct(new(application), "*"),
	))
}
