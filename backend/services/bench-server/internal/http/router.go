package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/http/handlers"
	"cellbench/backend/services/bench-server/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Health       http.HandlerFunc
	StationCount http.HandlerFunc
	WSLive       http.HandlerFunc
	Auth         *handlers.AuthHandlers
	Stations     *handlers.StationsHandlers
	Customers    *handlers.CustomersHandlers
	WorkOrders   *handlers.WorkOrdersHandlers
	Tools        *handlers.ToolsHandlers
	Sessions     *handlers.SessionsHandlers
	JobTasks     *handlers.JobTasksHandlers
	Recipes      *handlers.RecipesHandlers
	Reports      *handlers.ReportsHandlers
	Logger       *zap.Logger
}

// NewRouter wires HTTP routes with middleware. Reads, the live feed
// and the station-count endpoint stay open; writes require a token.
func NewRouter(deps RouterDeps, authRequired func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics)

	r.Get("/healthz", deps.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", deps.Auth.Login)
		r.With(authRequired).Post("/auth/signup", deps.Auth.Signup)
		r.Get("/config/stations", deps.StationCount)
		r.Get("/ws/live", deps.WSLive)

		r.Route("/stations", func(r chi.Router) {
			r.Get("/", deps.Stations.List)
			r.Get("/{id}", deps.Stations.Get)
			r.Get("/{id}/eeprom", deps.Stations.EEPROM)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/control", deps.Stations.Control)
				r.Post("/start-recipe", deps.Stations.StartRecipe)
				r.Post("/{id}/stop", deps.Stations.Stop)
				r.Post("/{id}/reset", deps.Stations.Reset)
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", deps.Customers.List)
			r.Get("/{id}", deps.Customers.Get)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/", deps.Customers.Create)
				r.Put("/{id}", deps.Customers.Update)
				r.Delete("/{id}", deps.Customers.Delete)
			})
		})

		r.Route("/work-orders", func(r chi.Router) {
			r.Get("/", deps.WorkOrders.List)
			r.Get("/{id}", deps.WorkOrders.Get)
			r.Get("/{id}/items", deps.WorkOrders.ListItems)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/", deps.WorkOrders.Create)
				r.Put("/{id}", deps.WorkOrders.Update)
				r.Delete("/{id}", deps.WorkOrders.Delete)
				r.Post("/{id}/items", deps.WorkOrders.CreateItem)
			})
		})

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", deps.Tools.List)
			r.Get("/available", deps.Tools.ListAvailable)
			r.Get("/{id}", deps.Tools.Get)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/", deps.Tools.Create)
				r.Put("/{id}", deps.Tools.Update)
				r.Delete("/{id}", deps.Tools.Delete)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", deps.Sessions.List)
			r.Get("/active/all", deps.Sessions.ActiveAll)
			r.Get("/{id}", deps.Sessions.Get)
		})

		r.Route("/job-tasks", func(r chi.Router) {
			r.Get("/job/{jobID}", deps.JobTasks.ListByJob)
			r.Get("/awaiting-input/{stationID}", deps.JobTasks.AwaitingByStation)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/{id}/submit", deps.JobTasks.Submit)
				r.Post("/{id}/skip", deps.JobTasks.Skip)
			})
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", deps.Recipes.List)
			r.Get("/{id}", deps.Recipes.Get)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/{sessionID}/download", deps.Reports.Download)
			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/{sessionID}/generate", deps.Reports.Generate)
			})
		})
	})

	return r
}
