package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/onkernel/stillcam/lib/middleware"
	"github.com/riandyrn/otelchi"
)

// newRouter builds the HTTP handler. There is no request timeout because
// stream connections stay open.
func newRouter(app *application) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(otelchi.Middleware(app.Config.OtelServiceName, otelchi.WithChiRoutes(r)))

	if app.Config.OtelEnabled {
		httpMetrics, err := middleware.NewHTTPMetrics(app.Telemetry.Meter)
		if err != nil {
			return nil, fmt.Errorf("create http metrics: %w", err)
		}
		r.Use(httpMetrics.Middleware)
	} else {
		r.Use(middleware.NoopHTTPMetrics())
	}

	r.Use(middleware.AccessLogger(middleware.NewAccessLogger(app.Telemetry.LogHandler)))
	r.Use(middleware.InjectLogger(app.Logger))

	app.ApiService.Routes(r)
	return r, nil
}
