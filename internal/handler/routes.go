package handler

import (
	"log/slog"

	"github.com/gorilla/mux"

	"github.com/segyhp/movie-rental/pkg/response"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health   *HealthHandler
	Movies   *MovieHandler
	Users    *UserHandler
	Rentals  *RentalHandler
	LateFees *LateFeeHandler
	Reports  *ReportHandler
}

func NewRouter(h Handlers, log *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RequestIDMiddleware, response.LoggingMiddleware(log), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods("GET")
	router.HandleFunc("/health/ready", h.Health.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/movies", h.Movies.List).Methods("GET")
	api.HandleFunc("/movies", h.Movies.Create).Methods("POST")
	api.HandleFunc("/movies/{id}", h.Movies.Get).Methods("GET")
	api.HandleFunc("/movies/{id}", h.Movies.Update).Methods("PUT")
	api.HandleFunc("/movies/{id}", h.Movies.Delete).Methods("DELETE")

	api.HandleFunc("/users", h.Users.List).Methods("GET")
	api.HandleFunc("/users", h.Users.Create).Methods("POST")
	api.HandleFunc("/users/{id}", h.Users.Get).Methods("GET")
	api.HandleFunc("/users/{id}", h.Users.Update).Methods("PUT")
	api.HandleFunc("/users/{id}", h.Users.Delete).Methods("DELETE")

	api.HandleFunc("/rentals", h.Rentals.List).Methods("GET")
	api.HandleFunc("/rentals", h.Rentals.Rent).Methods("POST")
	api.HandleFunc("/rentals/active", h.Rentals.Active).Methods("GET")
	api.HandleFunc("/rentals/overdue", h.Rentals.Overdue).Methods("GET")
	api.HandleFunc("/rentals/{id}", h.Rentals.Get).Methods("GET")
	api.HandleFunc("/rentals/{id}/price", h.Rentals.Price).Methods("GET")
	api.HandleFunc("/rentals/{id}/return", h.Rentals.Return).Methods("PUT")

	api.HandleFunc("/late-fees", h.LateFees.List).Methods("GET")
	api.HandleFunc("/late-fees", h.LateFees.Create).Methods("POST")
	api.HandleFunc("/late-fees/{id}", h.LateFees.Update).Methods("PUT")
	api.HandleFunc("/late-fees/{id}", h.LateFees.Delete).Methods("DELETE")

	api.HandleFunc("/dashboard", h.Reports.Dashboard).Methods("GET")
	api.HandleFunc("/reports/revenue", h.Reports.Revenue).Methods("GET")
	api.HandleFunc("/reports/popular", h.Reports.Popular).Methods("GET")
	api.HandleFunc("/reports/late-returns", h.Reports.LateReturns).Methods("GET")

	return router
}
