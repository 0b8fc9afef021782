// Package httptransport assembles the public router: domain handlers behind
// the shared middleware chain, plus health and metrics endpoints.
package httptransport

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	countryhandler "globaldata/internal/country/handler"
	"globaldata/internal/platform/metrics"
	"globaldata/internal/platform/middleware"
	platformredis "globaldata/internal/platform/redis"
	statushandler "globaldata/internal/status/handler"
	"globaldata/internal/transport/http/shared"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Country *countryhandler.Handler
	Status  *statushandler.Handler
	DB      *sql.DB
	Redis   *platformredis.Client
}

// NewRouter wires all public endpoints behind the middleware chain.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	if d.Metrics != nil {
		r.Use(middleware.Latency(d.Metrics))
	}

	d.Country.Register(r)
	d.Status.Register(r)

	r.Get("/healthz", handleHealth(d))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func handleHealth(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := healthResponse{Status: "ok", Checks: map[string]string{}}

		if d.DB != nil {
			if err := d.DB.PingContext(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks["postgres"] = err.Error()
			} else {
				resp.Checks["postgres"] = "ok"
			}
		}
		if d.Redis != nil {
			if err := d.Redis.Health(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks["redis"] = err.Error()
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		shared.WriteJSON(w, code, resp)
	}
}
