/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:      Request logging
  2. Recoverer:   Panic recovery (500 instead of crash; no state is touched)
  3. RequestID:   Unique ID per request for tracing
  4. CORS:        Cross-origin requests for the dashboard frontend
  5. RequireAuth: Bearer-token authentication (everything under /api except login)
  6. RequireAdmin: Role gate on the admin route group

ROUTE GROUPS:
  /api/auth/*           Login, admin PIN check
  /api/requests/*       Extra-staff request lifecycle + CSV extract
  /api/rollup           Sector x lot matrix
  /api/daily-index      MO/UH day series
  /api/sectors          Sector listing (writes under /api/admin)
  /api/lots/{month}     Lot configuration (read)
  /api/budgets/{month}  Budgets (read)
  /api/occupancy        Occupancy (read)
  /api/config*          Configuration (read)
  /api/special-roles    Named pay rates (read)
  /api/admin/*          All mutating admin operations

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Post("/auth/admin-pin", h.VerifyAdminPin)

			r.Get("/requests", h.ListRequests)
			r.Post("/requests", h.CreateRequest)
			r.Get("/requests/export", h.ExportRequests)
			r.Put("/requests/{id}", h.UpdateRequest)

			r.Get("/rollup", h.GetRollup)
			r.Get("/daily-index", h.GetDailyIndex)

			r.Get("/sectors", h.ListSectors)
			r.Get("/lots/{month}", h.GetLots)
			r.Get("/budgets/{month}", h.ListBudgets)
			r.Get("/occupancy", h.ListOccupancy)
			r.Get("/config", h.GetConfig)
			r.Get("/config/months", h.ListMonthlyConfigs)
			r.Get("/special-roles", h.ListSpecialRoles)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)

				r.Post("/requests/{id}/status", h.UpdateRequestStatus)
				r.Delete("/requests/{id}", h.DeleteRequest)

				r.Post("/sectors", h.SaveSector)
				r.Delete("/sectors/{id}", h.DeleteSector)

				r.Put("/budgets/{month}/{sectorID}", h.SaveBudget)
				r.Post("/budgets/{month}/paste", h.PasteBudgets)

				r.Put("/lots/{month}", h.SaveLots)

				r.Get("/stats/{month}", h.ListManualStats)
				r.Put("/stats/{month}/{sectorID}", h.PatchManualStat)
				r.Post("/stats/{month}/paste", h.PasteManualStats)
				r.Delete("/stats/{month}/{sectorID}", h.DeleteManualStat)

				r.Put("/occupancy/{date}", h.UpsertOccupancy)

				r.Put("/config", h.SaveConfig)
				r.Put("/config/months/{month}", h.SaveMonthlyConfig)

				r.Post("/special-roles", h.SaveSpecialRole)
				r.Delete("/special-roles/{id}", h.DeleteSpecialRole)

				r.Get("/admin/users", h.ListUsers)
				r.Post("/admin/users", h.CreateUser)
			})
		})
	})

	return r
}
