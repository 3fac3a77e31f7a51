package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm/clause"
)

// POST /badges  (admin)
func (a *app) handleCreateBadge(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IconURL     string `json:"iconUrl"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		errorJSON(w, http.StatusBadRequest, "name required")
		return
	}

	b := Badge{ID: newID(), Name: in.Name, Description: in.Description, IconURL: in.IconURL}
	res := a.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&b)
	if res.Error != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if res.RowsAffected == 0 {
		errorJSON(w, http.StatusConflict, "badge name already exists")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GET /badges
func (a *app) handleListBadges(w http.ResponseWriter, r *http.Request) {
	var badges []Badge
	if err := a.db.WithContext(r.Context()).Find(&badges).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

// POST /users/{userId}/badges/{badgeId}  (admin)
// Manual award path; uses the same insert-if-absent as the reward engine.
func (a *app) handleAwardBadge(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	badgeID := chi.URLParam(r, "badgeId")

	var u User
	if err := a.db.WithContext(r.Context()).First(&u, "id = ?", userID).Error; err != nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	var b Badge
	if err := a.db.WithContext(r.Context()).First(&b, "id = ?", badgeID).Error; err != nil {
		errorJSON(w, http.StatusNotFound, "badge not found")
		return
	}

	ub := UserBadge{ID: newID(), UserID: userID, BadgeID: badgeID}
	res := a.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(&ub)
	if res.Error != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if res.RowsAffected == 0 {
		errorJSON(w, http.StatusConflict, "user already holds this badge")
		return
	}
	writeJSON(w, http.StatusCreated, ub)
}

// GET /users/{userId}/badges
func (a *app) handleListUserBadges(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var badges []Badge
	err := a.db.WithContext(r.Context()).
		Joins("JOIN user_badges ON user_badges.badge_id = badges.id").
		Where("user_badges.user_id = ?", userID).
		Find(&badges).Error
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, badges)
}
