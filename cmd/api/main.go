package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onkernel/stillcam/lib/live"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initializeApp(ctx)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	log := app.Logger
	cfg := app.Config

	handler, err := newRouter(app)
	if err != nil {
		return err
	}

	// Bind before starting the camera so a busy port fails fast.
	ln, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		log.Info("starting stillcam server", "port", cfg.Port, "images", app.Repository.Len())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			return err
		}
		return nil
	})

	if err := app.Scheduler.Start(gctx, cfg.CapturePeriod, onCaptured(gctx, app)); err != nil {
		stop()
		_ = srv.Close()
		_ = grp.Wait()
		return fmt.Errorf("start scheduler: %w", err)
	}

	grp.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		app.Scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown http server", "error", err)
			return err
		}

		log.Info("http server shutdown complete")
		return nil
	})

	return grp.Wait()
}

// onCaptured archives each new picture and then makes it the live frame.
func onCaptured(ctx context.Context, app *application) func(path string) {
	return func(path string) {
		app.Logger.Info("new picture available", "path", path)
		if err := app.Repository.Register(ctx, path); err != nil {
			app.Logger.Error("cannot evict oldest image, disk may fill up", "path", path, "error", err)
		}
		if err := app.Distributor.Publish(live.FileLoader(path)); err != nil {
			app.Logger.Warn("cannot publish new picture", "path", path, "error", err)
		}
	}
}
