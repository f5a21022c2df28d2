package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	platformmw "famledger/internal/platform/middleware"
	"famledger/internal/ratelimit/models"
)

// Limiter records and evaluates per-origin traffic.
type Limiter interface {
	Record(ctx context.Context, origin, path string) error
	Check(ctx context.Context, origin string) (*models.Decision, error)
}

// skipPaths are exempt from the origin budget: probes and scrapes must not
// starve real clients sharing an origin.
var skipPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// OriginLimit applies the per-origin request budget to every inbound request.
// The current request is recorded before the decision so the request that
// exhausts the budget is itself denied.
func OriginLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			origin := platformmw.ClientIP(r)

			if err := limiter.Record(ctx, origin, r.URL.Path); err != nil {
				logger.ErrorContext(ctx, "failed to record origin request",
					"error", err,
					"origin", origin,
					"request_id", platformmw.GetRequestID(ctx),
				)
				writeInternalError(w)
				return
			}

			decision, err := limiter.Check(ctx, origin)
			if err != nil {
				logger.ErrorContext(ctx, "failed to evaluate origin budget",
					"error", err,
					"origin", origin,
					"request_id", platformmw.GetRequestID(ctx),
				)
				writeInternalError(w)
				return
			}
			if !decision.Allowed {
				writeTooManyRequests(w, int(decision.RetryAfter.Seconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Content-Type", "application/json")
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"too many requests, please try again later"}`))
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal_error"}`))
}
