/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. requestLog: One logrus line per request, with the request id
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/programs         Program catalogue
  /api/users/{userID}/* Attendance, earnings and payments of one user
  /api/admin/*          Payments and batch payroll
  /healthz              Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// RouterOptions tunes NewRouter. The zero value allows local frontends.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/programs", h.ListPrograms)

		r.Route("/users/{userID}", func(r chi.Router) {
			// Handler program
			r.Post("/attendance", h.SubmitAttendance)
			r.Get("/attendance", h.ListAttendance)
			r.Get("/attendance/{date}", h.GetAttendance)
			r.Patch("/attendance/{date}", h.PatchAttendance)
			r.Delete("/attendance/{date}", h.DeleteAttendance)
			r.Get("/earnings", h.GetEarnings)

			// Kollel programs
			r.Route("/kollel/{programID}", func(r chi.Router) {
				r.Post("/attendance", h.SubmitKollelAttendance)
				r.Delete("/attendance/{date}", h.DeleteKollelAttendance)
				r.Post("/earnings/{year}/{month}", h.CalculateKollelEarnings)
				r.Get("/earnings", h.GetKollelEarnings)
			})

			r.Get("/payments", h.ListPayments)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/payments", h.RecordPayment)
			r.Post("/kollel/{programID}/recalculate", h.RecalculateKollelMonth)
		})
	})

	return r
}

// requestLog logs every request once it completes.
func requestLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			}).Info("request")
		})
	}
}
