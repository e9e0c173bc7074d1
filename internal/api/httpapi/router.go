package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/courierlive/internal/metrics"
	"github.com/BearBump/courierlive/internal/services/agents"
	"github.com/BearBump/courierlive/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AllowedOrigins []string
	// SwaggerPath enables /swagger.json and /docs/* when set.
	SwaggerPath string
	// Realtime serves /ws and /socket.
	Realtime http.Handler
	Metrics  *metrics.Metrics
}

func NewRouter(ordersSvc *orders.Service, agentsSvc *agents.Service, opts Options) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	if opts.Realtime != nil {
		r.Get("/ws", opts.Realtime.ServeHTTP)
		r.Get("/socket", opts.Realtime.ServeHTTP)
	}
	r.Get("/metrics", opts.Metrics.Handler().ServeHTTP)

	if opts.SwaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.SwaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.SwaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	oh := ordersHandler{svc: ordersSvc}
	ah := agentsHandler{svc: agentsSvc}

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLog(opts.Metrics))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", oh.list)
			r.Post("/", oh.create)
			r.Get("/{orderId}", oh.get)
			r.Patch("/{id}/status", oh.updateStatus)
			r.Patch("/{id}/assign", oh.assign)
			r.Post("/{orderId}/verify-otp", oh.verifyOTP)
		})
		r.Get("/agents", ah.list)
	})

	return r
}

// requestLog logs every request and records it under its route pattern.
func requestLog(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			m.ObserveHTTP(route, r.Method, status, elapsed)
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}
