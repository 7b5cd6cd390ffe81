package httpapi

import (
	"net/http"

	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Routes mounts a component under /api.
type Routes interface {
	RegisterRoutes(r chi.Router)
}

// NewRouter builds the common router: middleware, /health, /metrics and the
// given routes under /api.
func NewRouter(serviceName string, tracer oteltrace.Tracer, metrics http.Handler, routes ...Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	if tracer != nil {
		r.Use(observability.Middleware(tracer, serviceName))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		for _, rt := range routes {
			rt.RegisterRoutes(r)
		}
	})
	return r
}
