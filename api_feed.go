package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm/clause"
)

// POST /activities  (auth)
func (a *app) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var in struct {
		Content string `json:"content"`
		EventID string `json:"eventId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		errorJSON(w, http.StatusBadRequest, "content required")
		return
	}

	act := Activity{
		ID:      newID(),
		UserID:  claims.UserID,
		EventID: in.EventID,
		Content: in.Content,
	}
	if err := a.db.WithContext(r.Context()).Create(&act).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, act)
}

// GET /activities  (latest first)
func (a *app) handleListActivities(w http.ResponseWriter, r *http.Request) {
	var activities []Activity
	if err := a.db.WithContext(r.Context()).
		Order("created_at DESC").
		Find(&activities).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// POST /activities/{activityId}/comments  (auth)
func (a *app) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityId")
	claims := claimsFromContext(r.Context())

	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		errorJSON(w, http.StatusBadRequest, "content required")
		return
	}
	if err := a.requireActivity(r, activityID); err != nil {
		errorJSON(w, http.StatusNotFound, "activity not found")
		return
	}

	c := Comment{
		ID:         newID(),
		ActivityID: activityID,
		UserID:     claims.UserID,
		Content:    in.Content,
	}
	if err := a.db.WithContext(r.Context()).Create(&c).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GET /activities/{activityId}/comments  (oldest first)
func (a *app) handleListComments(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityId")

	var comments []Comment
	if err := a.db.WithContext(r.Context()).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// POST /activities/{activityId}/reactions  (auth)
// Upsert by (user, activity): a repeat reaction replaces the type.
func (a *app) handleUpsertReaction(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityId")
	claims := claimsFromContext(r.Context())

	var in struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Type = strings.TrimSpace(in.Type)
	if in.Type == "" {
		errorJSON(w, http.StatusBadRequest, "type required")
		return
	}
	if err := a.requireActivity(r, activityID); err != nil {
		errorJSON(w, http.StatusNotFound, "activity not found")
		return
	}

	reaction := Reaction{
		ID:         newID(),
		UserID:     claims.UserID,
		ActivityID: activityID,
		Type:       in.Type,
	}
	err := a.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
		}).
		Create(&reaction).Error
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	// Re-read into a fresh struct so the response carries the surviving row;
	// reusing the candidate would pin the query to its never-inserted id.
	var out Reaction
	if err := a.db.WithContext(r.Context()).
		Where("user_id = ? AND activity_id = ?", claims.UserID, activityID).
		First(&out).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// GET /activities/{activityId}/reactions
func (a *app) handleListReactions(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityId")

	var reactions []Reaction
	if err := a.db.WithContext(r.Context()).
		Where("activity_id = ?", activityID).
		Find(&reactions).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, reactions)
}

// POST /events/{eventId}/messages  (auth)
func (a *app) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	claims := claimsFromContext(r.Context())

	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		errorJSON(w, http.StatusBadRequest, "content required")
		return
	}

	var ev Event
	if err := a.db.WithContext(r.Context()).First(&ev, "id = ?", eventID).Error; err != nil {
		errorJSON(w, http.StatusNotFound, "event not found")
		return
	}

	m := Message{
		ID:       newID(),
		EventID:  eventID,
		SenderID: claims.UserID,
		Content:  in.Content,
	}
	if err := a.db.WithContext(r.Context()).Create(&m).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GET /events/{eventId}/messages  (auth, oldest first)
func (a *app) handleListMessages(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	var messages []Message
	if err := a.db.WithContext(r.Context()).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *app) requireActivity(r *http.Request, activityID string) error {
	var act Activity
	return a.db.WithContext(r.Context()).Select("id").First(&act, "id = ?", activityID).Error
}
