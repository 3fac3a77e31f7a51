package main

import (
	"net/http"
)

type analyticsEvent struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	ParticipantCount int64  `json:"participantCount"`
}

// GET /admin/analytics  (admin)
// Read-only aggregation; totalParticipations is a true count of approved
// rows, totalSlotCapacity keeps the old capacity-sum figure around.
func (a *app) handleAdminAnalytics(w http.ResponseWriter, r *http.Request) {
	db := a.db.WithContext(r.Context())

	var totalUsers, totalEvents, totalBadgesAwarded, totalParticipations int64
	if err := db.Model(&User{}).Count(&totalUsers).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if err := db.Model(&Event{}).Count(&totalEvents).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if err := db.Model(&UserBadge{}).Count(&totalBadgesAwarded).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if err := db.Model(&Participation{}).
		Where("status = ?", ParticipationApproved).
		Count(&totalParticipations).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	var totalCredits, totalSlotCapacity int64
	if err := db.Model(&User{}).
		Select("COALESCE(SUM(plus_credits), 0)").
		Scan(&totalCredits).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if err := db.Model(&Event{}).
		Select("COALESCE(SUM(available_slots), 0)").
		Scan(&totalSlotCapacity).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	var topEvents []analyticsEvent
	err := db.Model(&Event{}).
		Select("events.id, events.title, COUNT(participations.id) AS participant_count").
		Joins("LEFT JOIN participations ON participations.event_id = events.id").
		Group("events.id, events.title").
		Order("participant_count DESC").
		Limit(5).
		Scan(&topEvents).Error
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	var topUsers []User
	if err := db.Order("plus_credits DESC").Limit(5).Find(&topUsers).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	topUserDTOs := make([]userDTO, 0, len(topUsers))
	for _, u := range topUsers {
		topUserDTOs = append(topUserDTOs, toDTO(u))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalUsers":          totalUsers,
		"totalEvents":         totalEvents,
		"totalCredits":        totalCredits,
		"totalParticipations": totalParticipations,
		"totalSlotCapacity":   totalSlotCapacity,
		"totalBadgesAwarded":  totalBadgesAwarded,
		"topEvents":           topEvents,
		"topUsers":            topUserDTOs,
	})
}
