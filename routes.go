package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

// app carries the injected dependencies all handlers share. The DB handle is
// opened once at process start and closed on shutdown.
type app struct {
	cfg Config
	db  *gorm.DB
	idp identityProvider
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	var origins []string
	for _, p := range strings.Split(a.cfg.CORSOrigin, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// Auth
	r.Post("/signup", a.handleSignup)
	r.Post("/login", a.handleLogin)
	r.Post("/auth/google", a.handleGoogleAuth)

	// Public reads
	r.Get("/associations", a.handleListAssociations)
	r.Get("/events", a.handleListEvents)
	r.Get("/events/{eventId}", a.handleGetEvent)
	r.Get("/leaderboard", a.handleLeaderboard)
	r.Get("/activities", a.handleListActivities)
	r.Get("/activities/{activityId}/comments", a.handleListComments)
	r.Get("/activities/{activityId}/reactions", a.handleListReactions)
	r.Get("/users/{userId}/ratings", a.handleListRatings)
	r.Get("/users/{userId}/badges", a.handleListUserBadges)
	r.Get("/badges", a.handleListBadges)
	r.Get("/share/user/{userId}", a.handleShareUser)
	r.Get("/share/event/{eventId}", a.handleShareEvent)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/me", a.handleMe)
		r.Put("/me", a.handleUpdateMe)
		r.Patch("/users/me/visibility", a.handleUpdateVisibility)
		r.Delete("/users/me", a.handleDeleteAccount)
		r.Get("/notifications", a.handleListNotifications)

		r.Post("/associations", a.handleCreateAssociation)
		r.Put("/associations/{id}", a.handleUpdateAssociation)
		r.Delete("/associations/{id}", a.handleDeleteAssociation)

		r.Post("/events", a.handleCreateEvent)
		r.Put("/events/{eventId}", a.handleUpdateEvent)
		r.Post("/events/{eventId}/join", a.handleJoinEvent)
		r.Post("/events/{eventId}/leave", a.handleLeaveEvent)

		r.Post("/activities", a.handleCreateActivity)
		r.Post("/activities/{activityId}/comments", a.handleCreateComment)
		r.Post("/activities/{activityId}/reactions", a.handleUpsertReaction)
		r.Post("/events/{eventId}/messages", a.handleCreateMessage)
		r.Get("/events/{eventId}/messages", a.handleListMessages)
		r.Post("/events/{eventId}/ratings", a.handleCreateRating)

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(a.requireRole(RoleAdmin))

			r.Post("/events/{eventId}/approve/{userId}", a.handleApproveParticipation)
			r.Post("/badges", a.handleCreateBadge)
			r.Post("/users/{userId}/badges/{badgeId}", a.handleAwardBadge)
			r.Get("/admin/analytics", a.handleAdminAnalytics)
		})
	})

	return r
}
