package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler answers /healthz with the database state.
func HealthHandler(db Pinger, logger *slog.Logger) http.Handler {
	responder := newResponder(logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				responder.loggerFor(ctx).ErrorContext(ctx, "health check failed", "error", err)
				responder.writeJSON(ctx, w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Database: "unreachable"})
				return
			}
		}
		responder.writeJSON(ctx, w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
