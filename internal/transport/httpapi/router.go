package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"calbook/internal/ratelimit"
)

// Pinger reports whether the store is reachable.
type Pinger func(ctx context.Context) error

type Deps struct {
	Owners         ownersService
	Bookings       bookingsService
	Ready          Pinger
	Limiter        *ratelimit.Limiter
	RequestTimeout time.Duration
	// CORSOrigins defaults to any origin when empty.
	CORSOrigins    []string
	Log            *slog.Logger
}

// NewHandler builds the HTTP surface. Middleware runs in this order: request
// logging, CORS, panic recovery, rate limiting, request timeout.
func NewHandler(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	v := newRequestValidator()
	users := &userHandler{svc: d.Owners, validate: v}
	meetings := &meetingHandler{svc: d.Bookings, validate: v}

	router := httprouter.New()
	router.HandleMethodNotAllowed = false
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})

	router.POST("/users", users.create)
	router.GET("/users", users.list)
	router.GET("/users/:id", users.get)
	router.PUT("/users/:id", users.update)
	router.DELETE("/users/:id", users.delete)

	router.POST("/meetings", meetings.create)
	router.GET("/meetings", meetings.list)
	router.GET("/meetings/:id", meetings.get)
	router.PUT("/meetings/:id", meetings.update)
	router.DELETE("/meetings/:id", meetings.delete)

	router.GET("/health", health)
	router.GET("/ready", ready(d.Ready))

	return chain(router,
		requestLogging(log),
		allowCORS(d.CORSOrigins),
		recovery,
		rateLimit(d.Limiter),
		requestTimeout(d.RequestTimeout),
	)
}

func health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeData(w, http.StatusOK, "Server is running", nil)
}

func ready(ping Pinger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				loggerFrom(r.Context()).Warn("readiness check failed", slog.Any("err", err))
				writeFailure(w, http.StatusServiceUnavailable, "Database unavailable")
				return
			}
		}
		writeData(w, http.StatusOK, "Ready", nil)
	}
}

