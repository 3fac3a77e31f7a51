package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm/clause"
)

// POST /events/{eventId}/ratings  (auth)
func (a *app) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	claims := claimsFromContext(r.Context())

	var in struct {
		RevieweeID string `json:"revieweeId"`
		Stars      int    `json:"stars"`
		Comment    string `json:"comment"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Stars < 1 || in.Stars > 5 {
		errorJSON(w, http.StatusBadRequest, "stars must be between 1 and 5")
		return
	}
	if in.RevieweeID == "" {
		errorJSON(w, http.StatusBadRequest, "revieweeId required")
		return
	}
	if in.RevieweeID == claims.UserID {
		errorJSON(w, http.StatusBadRequest, "you cannot rate yourself")
		return
	}

	rating := Rating{
		ID:         newID(),
		ReviewerID: claims.UserID,
		RevieweeID: in.RevieweeID,
		EventID:    eventID,
		Stars:      in.Stars,
		Comment:    in.Comment,
	}
	res := a.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reviewer_id"}, {Name: "reviewee_id"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&rating)
	if res.Error != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if res.RowsAffected == 0 {
		errorJSON(w, http.StatusConflict, "you have already rated this user for this event")
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

// GET /users/{userId}/ratings
func (a *app) handleListRatings(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var ratings []Rating
	if err := a.db.WithContext(r.Context()).
		Where("reviewee_id = ?", userID).
		Order("created_at DESC").
		Find(&ratings).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}
