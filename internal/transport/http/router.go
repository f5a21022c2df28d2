package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "famledger/internal/auth/handler"
	"famledger/internal/platform/middleware"
	"famledger/internal/platform/middleware/requesttime"
	ratelimitmw "famledger/internal/ratelimit/middleware"
)

// NewRouter wires all public endpoints with the middleware stack.
// Ordering matters: the origin limiter sits after logging so denied floods
// still leave a trace, and before any route handling so every endpoint
// spends from the same per-origin budget.
func NewRouter(
	h *authhandler.Handler,
	limiter ratelimitmw.Limiter,
	validator middleware.TokenValidator,
	revocations middleware.RevocationChecker,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(ratelimitmw.OriginLimit(limiter, logger))

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		h.RegisterPublic(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(validator, revocations, logger))
			h.RegisterProtected(protected)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
