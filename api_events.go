package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventReq struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	Date           string `json:"date"` // RFC 3339
	AvailableSlots int    `json:"available_slots"`
	AssociationID  string `json:"associationId"`
}

// POST /events  (auth)
func (a *app) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		errorJSON(w, http.StatusBadRequest, "title required")
		return
	}
	date, err := time.Parse(time.RFC3339, in.Date)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "date must be RFC 3339")
		return
	}
	if in.AvailableSlots < 0 {
		errorJSON(w, http.StatusBadRequest, "available_slots must be non-negative")
		return
	}
	if in.AssociationID != "" {
		var assoc Association
		if err := a.db.WithContext(r.Context()).First(&assoc, "id = ?", in.AssociationID).Error; err != nil {
			errorJSON(w, http.StatusBadRequest, "unknown association")
			return
		}
	}

	ev := Event{
		ID:             newID(),
		Title:          in.Title,
		Description:    in.Description,
		Location:       in.Location,
		Date:           date,
		AvailableSlots: in.AvailableSlots,
		AssociationID:  in.AssociationID,
	}
	if err := a.db.WithContext(r.Context()).Create(&ev).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// GET /events
func (a *app) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var events []Event
	if err := a.db.WithContext(r.Context()).Find(&events).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GET /events/{eventId}
func (a *app) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventId")

	var ev Event
	if err := a.db.WithContext(r.Context()).First(&ev, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "event not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// PUT /events/{eventId}  (auth)
// Partial update: absent fields keep their value, present fields are applied
// even when zero (slots can go to 0).
func (a *app) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventId")

	var in struct {
		Title          *string `json:"title"`
		Description    *string `json:"description"`
		Location       *string `json:"location"`
		Date           *string `json:"date"` // RFC 3339
		AvailableSlots *int    `json:"available_slots"`
	}
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	var ev Event
	if err := a.db.WithContext(r.Context()).First(&ev, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "event not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			errorJSON(w, http.StatusBadRequest, "title cannot be empty")
			return
		}
		ev.Title = t
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Location != nil {
		ev.Location = *in.Location
	}
	if in.Date != nil {
		date, err := time.Parse(time.RFC3339, *in.Date)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "date must be RFC 3339")
			return
		}
		ev.Date = date
	}
	if in.AvailableSlots != nil {
		if *in.AvailableSlots < 0 {
			errorJSON(w, http.StatusBadRequest, "available_slots must be non-negative")
			return
		}
		ev.AvailableSlots = *in.AvailableSlots
	}

	if err := a.db.WithContext(r.Context()).Save(&ev).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// POST /events/{eventId}/join  (auth)
func (a *app) handleJoinEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	claims := claimsFromContext(r.Context())

	var ev Event
	if err := a.db.WithContext(r.Context()).First(&ev, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "event not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	p := Participation{
		ID:      newID(),
		UserID:  claims.UserID,
		EventID: eventID,
		Status:  ParticipationPending,
	}
	res := a.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&p)
	if res.Error != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if res.RowsAffected == 0 {
		errorJSON(w, http.StatusConflict, "participation already exists for this event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Participation requested. Awaiting approval."})
}

// POST /events/{eventId}/leave  (auth)
func (a *app) handleLeaveEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	claims := claimsFromContext(r.Context())

	res := a.db.WithContext(r.Context()).
		Where("user_id = ? AND event_id = ?", claims.UserID, eventID).
		Delete(&Participation{})
	if res.Error != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if res.RowsAffected == 0 {
		errorJSON(w, http.StatusNotFound, "no participation for this event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "You have left the event."})
}

// GET /share/event/{eventId}
func (a *app) handleShareEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	var ev Event
	if err := a.db.WithContext(r.Context()).First(&ev, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "event not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	by := ""
	if ev.AssociationID != "" {
		var assoc Association
		if err := a.db.WithContext(r.Context()).First(&assoc, "id = ?", ev.AssociationID).Error; err == nil {
			by = " by " + assoc.Name
		}
	}
	summary := fmt.Sprintf("Join me at \"%s\"%s on +PLUS! Let's make an impact together.", ev.Title, by)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}
