package main

import (
	"net/http"

	"gorm.io/gorm"
)

// createNotification appends an entry to the user's notification feed. Passed
// the caller's transaction handle so reward notifications commit atomically
// with the award.
func createNotification(tx *gorm.DB, userID, content string) error {
	n := Notification{ID: newID(), UserID: userID, Content: content}
	return tx.Create(&n).Error
}

// GET /notifications  (auth)
func (a *app) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var notifications []Notification
	if err := a.db.WithContext(r.Context()).
		Where("user_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}
