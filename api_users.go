package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// GET /me  (auth)
func (a *app) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var u User
	if err := a.db.WithContext(r.Context()).First(&u, "id = ?", claims.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "user not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	// Volunteering history: events with an approved participation.
	var events []Event
	if err := a.db.WithContext(r.Context()).
		Joins("JOIN participations ON participations.event_id = events.id").
		Where("participations.user_id = ? AND participations.status = ?", u.ID, ParticipationApproved).
		Find(&events).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"plus_credits":      u.PlusCredits,
		"profileVisibility": u.ProfileVisibility,
		"created_at":        u.CreatedAt,
		"events":            events,
	})
}

// PUT /me  (auth)
func (a *app) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var in struct {
		Name string `json:"name"`
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

	var u User
	if err := a.db.WithContext(r.Context()).First(&u, "id = ?", claims.UserID).Error; err != nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	u.Name = in.Name
	if err := a.db.WithContext(r.Context()).Save(&u).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(u))
}

// PATCH /users/me/visibility  (auth)
func (a *app) handleUpdateVisibility(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var in struct {
		ProfileVisibility string `json:"profileVisibility"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.ProfileVisibility != VisibilityPublic && in.ProfileVisibility != VisibilityPrivate {
		errorJSON(w, http.StatusBadRequest, "invalid visibility option")
		return
	}

	var u User
	if err := a.db.WithContext(r.Context()).First(&u, "id = ?", claims.UserID).Error; err != nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	u.ProfileVisibility = in.ProfileVisibility
	if err := a.db.WithContext(r.Context()).Save(&u).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile visibility updated.", "user": toDTO(u)})
}

// DELETE /users/me  (auth)
func (a *app) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	// Provider-side deletion is best effort; the local mirror is the source
	// of truth for the rest of the app.
	if err := a.idp.DeleteUser(r.Context(), claims.UserID); err != nil {
		log.Warn().Err(err).Str("userId", claims.UserID).Msg("provider user deletion failed")
	}

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{
			&Participation{}, &UserBadge{}, &Notification{}, &Reaction{}, &Comment{}, &Activity{},
		} {
			if err := tx.Where("user_id = ?", claims.UserID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("sender_id = ?", claims.UserID).Delete(&Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reviewer_id = ? OR reviewee_id = ?", claims.UserID, claims.UserID).Delete(&Rating{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, "id = ?", claims.UserID).Error
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted."})
}

// GET /leaderboard
func (a *app) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var users []User
	if err := a.db.WithContext(r.Context()).
		Order("plus_credits DESC").
		Limit(10).
		Find(&users).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toDTO(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /share/user/{userId}
func (a *app) handleShareUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var u User
	if err := a.db.WithContext(r.Context()).First(&u, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "user not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	summary := fmt.Sprintf("%s has earned %d PLUS+ credits volunteering with +PLUS!", u.Name, u.PlusCredits)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}
