/**
 * @description
 * This file sets up the HTTP router for the mission-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MissionRoutes creates and returns a new router for the mission service.
func MissionRoutes(h *MissionHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		// Mission lifecycle
		r.Post("/", h.CreateMissionHandler)
		r.Get("/", h.ListBusinessMissionsHandler)
		r.Post("/templates/activate", h.ActivateTemplateHandler)
		r.Get("/{missionID}", h.GetMissionHandler)
		r.Post("/{missionID}/toggle", h.ToggleMissionHandler)

		// Participation workflow
		r.Post("/{missionID}/applications", h.ApplyToMissionHandler)
		r.Get("/{missionID}/applications", h.ListMissionApplicationsHandler)
		r.Get("/applications", h.ListBusinessApplicationsHandler)
		r.Post("/applications/{participationID}/approve", h.ApproveParticipationHandler)
		r.Post("/applications/{participationID}/reject", h.RejectParticipationHandler)

		// Performance and pricing (read-only)
		r.Get("/{missionID}/performance", h.MissionPerformanceHandler)
		r.Get("/recommendations", h.PricingRecommendationsHandler)
		r.Get("/pricing/estimate", h.PricingEstimateHandler)
	})

	return r
}
