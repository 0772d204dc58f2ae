package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const requestTimeout = 15 * time.Second

// Services groups the application services the router serves.
type Services struct {
	Holds        HoldCreator
	Reservations ReservationManager
	Availability AvailabilityReader
	Admin        CatalogAdmin
	Ready        []ReadinessCheck
}

type RouterConfig struct {
	Logger      zerolog.Logger
	CORSOrigins []string
}

func NewRouter(svc Services, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	r.Get("/ready", HandleReady(svc.Ready...))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/hold", HandleCreateHold(svc.Holds))
			r.Get("/my", HandleMyReservations(svc.Reservations))
			r.Get("/{id}", HandleGetReservation(svc.Reservations))
			r.Post("/{id}/confirm", HandleConfirm(svc.Reservations))
			r.Post("/{id}/cancel", HandleCancel(svc.Reservations))
		})
		r.Get("/courts/{courtId}/availability", HandleAvailability(svc.Availability))
	})

	r.Route("/admin/courts", func(r chi.Router) {
		r.Get("/", HandleListCourts(svc.Admin))
		r.Post("/", HandleCreateCourt(svc.Admin))
		r.Get("/{courtId}/price-rules", HandleListPriceRules(svc.Admin))
		r.Post("/{courtId}/price-rules", HandleCreatePriceRule(svc.Admin))
	})

	return r
}
