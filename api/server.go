/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address from X-Forwarded-For / X-Real-IP
  3. RequestLogger: zap access log
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Allow-listed frontend origins

ROUTE GROUPS:
  /api/leaves/*        Leave requests and transitions; /{empID} lists
  /api/employees/*     Per-employee listing and balance
  /api/leave-stats/*   {allocatedLeaves, remainingLeaves} (legacy shape)
  /health              Store reachability

RATE LIMITING:
  Only POST /api/leaves is limited, per client IP.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Request logging and rate limiting
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	SubmitRate     float64
	SubmitBurst    int
	Logger         *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	submit := http.Handler(http.HandlerFunc(h.SubmitLeave))
	if opts.SubmitRate > 0 && opts.SubmitBurst > 0 {
		submit = NewIPRateLimiter(rate.Limit(opts.SubmitRate), opts.SubmitBurst).Middleware(submit)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/leaves", func(r chi.Router) {
			r.Method(http.MethodPost, "/", submit)
			r.Get("/", h.ListLeaves)
			r.Get("/export", h.ExportLeaves)
			r.Get("/{id}", h.GetLeave)
			r.Put("/{id}", h.UpdateLeaveStatus)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
		})

		r.Route("/employees/{empID}", func(r chi.Router) {
			r.Get("/leaves", h.ListEmployeeLeaves)
			r.Get("/balance", h.GetBalance)
		})

		r.Get("/leave-stats/{empID}", h.GetLeaveStats)
	})

	r.Get("/health", h.HealthCheck)

	return r
}
