package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/onkernel/stillcam/cmd/api/config"
	"github.com/onkernel/stillcam/lib/archive"
	"github.com/onkernel/stillcam/lib/capture"
	"github.com/onkernel/stillcam/lib/freespace"
	"github.com/onkernel/stillcam/lib/live"
	"github.com/onkernel/stillcam/lib/logger"
	"github.com/onkernel/stillcam/lib/otel"
	"github.com/onkernel/stillcam/lib/resources"
	"github.com/onkernel/stillcam/lib/scheduler"
)

// ProvideConfig provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideTelemetry provides OTel instruments; the cleanup flushes exporters
func ProvideTelemetry(ctx context.Context, cfg *config.Config) (*otel.Provider, func(), error) {
	p, err := otel.Init(ctx, otel.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
		Insecure:    cfg.OtelInsecure,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}
	cleanup := func() {
		if err := p.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown telemetry", "error", err)
		}
	}
	return p, cleanup, nil
}

// ProvideLogConfig provides per-subsystem log levels
func ProvideLogConfig() logger.Config {
	return logger.NewConfig()
}

// ProvideLogger provides the API logger and installs it as the slog default
func ProvideLogger(cfg logger.Config, tel *otel.Provider) *slog.Logger {
	log := logger.NewSubsystemLogger(logger.SubsystemAPI, cfg, tel.LogHandler)
	slog.SetDefault(log)
	return log
}

// ProvideFreeSpaceChecker provides the statfs-backed free space check for the data dir
func ProvideFreeSpaceChecker(cfg *config.Config, logCfg logger.Config, tel *otel.Provider) freespace.Checker {
	log := logger.NewSubsystemLogger(logger.SubsystemArchive, logCfg, tel.LogHandler)
	return freespace.NewStatfsChecker(cfg.DataDir, cfg.MinFreeSpace, log)
}

// ProvideRepository provides the image archive, loaded with the images already on disk
func ProvideRepository(ctx context.Context, cfg *config.Config, space freespace.Checker, logCfg logger.Config, tel *otel.Provider) (*archive.Repository, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	log := logger.NewSubsystemLogger(logger.SubsystemArchive, logCfg, tel.LogHandler)
	repo, err := archive.New(archive.Config{Root: cfg.DataDir}, space, log, tel.Meter)
	if err != nil {
		return nil, err
	}
	if err := repo.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize archive: %w", err)
	}
	return repo, nil
}

// ProvideDistributor provides the live frame distributor; the cleanup stops its workers
func ProvideDistributor(cfg *config.Config, logCfg logger.Config, tel *otel.Provider) (*live.Distributor, func(), error) {
	log := logger.NewSubsystemLogger(logger.SubsystemLive, logCfg, tel.LogHandler)
	d, err := live.New(live.Options{
		PollInterval: cfg.StreamPollInterval,
		StaleBudget:  cfg.StreamStalePolls,
		LoadWorkers:  cfg.LoadWorkers,
	}, log, tel.Meter)
	if err != nil {
		return nil, nil, err
	}
	return d, d.Close, nil
}

// ProvideCapturer provides the camera, or a replay of recorded images when emulating
func ProvideCapturer(cfg *config.Config, logCfg logger.Config, tel *otel.Provider) (capture.Capturer, error) {
	log := logger.NewSubsystemLogger(logger.SubsystemCapture, logCfg, tel.LogHandler)
	if cfg.EmulateCameraDir != "" {
		c, err := capture.NewReplayCapturer(cfg.EmulateCameraDir, log)
		if err != nil {
			return nil, fmt.Errorf("load emulated camera images: %w", err)
		}
		return c, nil
	}
	opts := capture.CommandOptions{
		MaxRunning: cfg.CaptureWorkers,
		MaxPending: cfg.CaptureMaxPending,
		Timeout:    cfg.CaptureTimeout,
	}
	c, err := capture.NewCommandCapturer(cfg.CaptureCommand, opts, log, tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("create camera command: %w", err)
	}
	return c, nil
}

// ProvideScheduler provides the capture scheduler writing into the archive
func ProvideScheduler(capturer capture.Capturer, repo *archive.Repository, logCfg logger.Config, tel *otel.Provider) (*scheduler.Scheduler, error) {
	log := logger.NewSubsystemLogger(logger.SubsystemScheduler, logCfg, tel.LogHandler)
	return scheduler.New(capturer, repo.PathForCapture, scheduler.Options{Tracer: tel.Tracer}, log, tel.Meter)
}

// ProvideResourceLoader provides static resources, from RESOURCES_DIR if set
func ProvideResourceLoader(cfg *config.Config) resources.Loader {
	if cfg.ResourcesDir != "" {
		return resources.Dir(cfg.ResourcesDir)
	}
	return resources.Embedded()
}
