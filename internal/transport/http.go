package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes are the handlers mounted on the router. Nil handlers are not mounted.
type Routes struct {
	MCP     http.Handler
	Metrics http.Handler
	// Health reports readiness; a nil Health always reports ok.
	Health func(ctx context.Context) error
}

// NewRouter creates an HTTP router with middleware.
func NewRouter(routes Routes, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", handleHealth(routes.Health, logger))
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	if routes.MCP != nil {
		r.Handle("/mcp", routes.MCP)
	}

	return r
}

func handleHealth(check func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
