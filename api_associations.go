package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// POST /associations  (auth)
func (a *app) handleCreateAssociation(w http.ResponseWriter, r *http.Request) {
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

	assoc := Association{ID: newID(), Name: in.Name}
	if err := a.db.WithContext(r.Context()).Create(&assoc).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, assoc)
}

// GET /associations
func (a *app) handleListAssociations(w http.ResponseWriter, r *http.Request) {
	var assocs []Association
	if err := a.db.WithContext(r.Context()).Find(&assocs).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, assocs)
}

// PUT /associations/{id}  (auth)
func (a *app) handleUpdateAssociation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

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

	var assoc Association
	if err := a.db.WithContext(r.Context()).First(&assoc, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "association not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	assoc.Name = in.Name
	if err := a.db.WithContext(r.Context()).Save(&assoc).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, assoc)
}

// DELETE /associations/{id}  (auth)
func (a *app) handleDeleteAssociation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var res *gorm.DB
		if res = tx.Delete(&Association{}, "id = ?", id); res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// The gateway owns cascades: the association's events and their
		// dependent rows go with it.
		var eventIDs []string
		if err := tx.Model(&Event{}).Where("association_id = ?", id).Pluck("id", &eventIDs).Error; err != nil {
			return err
		}
		if len(eventIDs) == 0 {
			return nil
		}
		for _, m := range []any{&Participation{}, &Message{}, &Rating{}} {
			if err := tx.Where("event_id IN ?", eventIDs).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id IN ?", eventIDs).Delete(&Event{}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			errorJSON(w, http.StatusNotFound, "association not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Association deleted"})
}
