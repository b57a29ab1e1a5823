// Package api assembles the HTTP surface: routes, middleware, services.
package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/meetgrid/server/internal/api/handlers"
	"github.com/meetgrid/server/internal/api/middleware"
	"github.com/meetgrid/server/internal/auth"
	"github.com/meetgrid/server/internal/config"
	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/registrations"
	"github.com/meetgrid/server/internal/domain/users"
	"github.com/meetgrid/server/internal/metrics"
)

// Deps carries the storage and queue implementations the router wires into
// services. Tests substitute in-memory fakes.
type Deps struct {
	Users         users.Repository
	Sessions      auth.SessionStore
	Events        events.Repository
	Registrations registrations.Repository
	Enqueuer      registrations.ConfirmationEnqueuer
	DB            handlers.Pinger
}

func NewRouter(cfg config.Config, logger zerolog.Logger, deps Deps) http.Handler {
	usersService := users.NewService(deps.Users, deps.Sessions, cfg.Auth.BcryptCost, cfg.Auth.SessionExpiry, logger)
	eventsService := events.NewService(deps.Events)
	registrationsService := registrations.NewService(deps.Events, deps.Registrations, deps.Enqueuer, logger)

	env := cfg.Environment
	authHandler := handlers.NewAuthHandler(usersService, env)
	eventsHandler := handlers.NewEventsHandler(eventsService, usersService, env)
	registrationsHandler := handlers.NewRegistrationsHandler(registrationsService, env)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	limit := middleware.RateLimit(cfg.RateLimit)
	tierAuth := middleware.WithRateLimitTierHandler(middleware.TierAuth)
	tierLogin := middleware.WithRateLimitTierHandler(middleware.TierLogin)
	requireAuth := middleware.RequireAuth(deps.Sessions, env)

	public := func(h http.HandlerFunc) http.Handler {
		return limit(h)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return tierAuth(limit(requireAuth(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(healthHandler.Healthz))
	mux.Handle("/readyz", http.HandlerFunc(healthHandler.Readyz))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/auth/register/{$}", methodMux(map[string]http.Handler{
		http.MethodPost: tierAuth(limit(http.HandlerFunc(authHandler.Register))),
	}))
	mux.Handle("/api/auth/login/{$}", methodMux(map[string]http.Handler{
		http.MethodPost: tierLogin(limit(http.HandlerFunc(authHandler.Login))),
	}))
	mux.Handle("/api/auth/logout/{$}", methodMux(map[string]http.Handler{
		http.MethodPost: authed(authHandler.Logout),
	}))

	mux.Handle("/api/events/{$}", methodMux(map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: authed(eventsHandler.Create),
	}))
	mux.Handle("/api/events/{id}/{$}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(eventsHandler.Get),
		http.MethodPut:    authed(eventsHandler.Update),
		http.MethodDelete: authed(eventsHandler.Delete),
	}))
	mux.Handle("/api/events/organizer/{username}/{$}", methodMux(map[string]http.Handler{
		http.MethodGet: public(eventsHandler.ListByOrganizer),
	}))

	mux.Handle("/api/events/{id}/register/{$}", methodMux(map[string]http.Handler{
		http.MethodPost:   authed(registrationsHandler.Register),
		http.MethodDelete: authed(registrationsHandler.Unregister),
	}))
	mux.Handle("/api/events/{id}/registrations/{$}", methodMux(map[string]http.Handler{
		http.MethodGet: authed(registrationsHandler.ListForEvent),
	}))
	mux.Handle("/api/user/registrations/{$}", methodMux(map[string]http.Handler{
		http.MethodGet: authed(registrationsHandler.ListForUser),
	}))

	chain := metrics.HTTPMiddleware(mux)
	chain = middleware.RequestLogger(chain)
	chain = middleware.CorrelationID(logger)(chain)
	return chain
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
