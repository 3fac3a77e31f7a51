package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// creditAward is the fixed number of credits granted per approved
// participation.
const creditAward = 10

var (
	ErrParticipationNotFound = errors.New("participation not found")
	ErrAlreadyApproved       = errors.New("participation already approved")
)

// qualifyingCounts are the totals badge rules are evaluated against,
// recomputed inside the approval transaction.
type qualifyingCounts struct {
	Credits        int
	ApprovedEvents int
}

type badgeRule struct {
	badgeName string
	qualifies func(qualifyingCounts) bool
}

// badgeRules is evaluated in order, so simultaneous qualification always
// awards in the same sequence. New rules are appended here.
var badgeRules = []badgeRule{
	{badgeName: "100 PLUS+ Credits", qualifies: func(c qualifyingCounts) bool { return c.Credits >= 100 }},
	{badgeName: "10 Events Attended", qualifies: func(c qualifyingCounts) bool { return c.ApprovedEvents >= 10 }},
}

type ApprovalResult struct {
	User      User     `json:"user"`
	NewBadges []string `json:"newBadges"`
}

// approveParticipation applies every consequence of an approval as one
// atomic unit: status flip, credit award, badge evaluation, notifications.
// If any step fails the transaction rolls back and no partial state is
// observable.
func (a *app) approveParticipation(ctx context.Context, eventID, userID string) (*ApprovalResult, error) {
	result := ApprovalResult{NewBadges: []string{}}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update resolves concurrent approvals: exactly one
		// caller flips pending -> approved, everyone else affects 0 rows.
		res := tx.Model(&Participation{}).
			Where("event_id = ? AND user_id = ? AND status = ?", eventID, userID, ParticipationPending).
			Update("status", ParticipationApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var p Participation
			err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).First(&p).Error
			if err == gorm.ErrRecordNotFound {
				return ErrParticipationNotFound
			}
			if err != nil {
				return err
			}
			return ErrAlreadyApproved
		}

		if err := tx.Model(&User{}).
			Where("id = ?", userID).
			UpdateColumn("plus_credits", gorm.Expr("plus_credits + ?", creditAward)).Error; err != nil {
			return err
		}

		var u User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return err
		}
		var approved int64
		if err := tx.Model(&Participation{}).
			Where("user_id = ? AND status = ?", userID, ParticipationApproved).
			Count(&approved).Error; err != nil {
			return err
		}

		counts := qualifyingCounts{Credits: u.PlusCredits, ApprovedEvents: int(approved)}
		for _, rule := range badgeRules {
			if !rule.qualifies(counts) {
				continue
			}
			awarded, err := awardBadgeIfAbsent(tx, userID, rule.badgeName)
			if err != nil {
				return err
			}
			if awarded {
				result.NewBadges = append(result.NewBadges, rule.badgeName)
			}
		}

		result.User = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// awardBadgeIfAbsent inserts the (user, badge) row if missing and writes the
// congratulation notification only when the insert actually happened. A
// missing catalog entry makes the rule inert rather than an error.
func awardBadgeIfAbsent(tx *gorm.DB, userID, badgeName string) (bool, error) {
	var b Badge
	err := tx.First(&b, "name = ?", badgeName).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ub := UserBadge{ID: newID(), UserID: userID, BadgeID: b.ID}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(&ub)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	content := fmt.Sprintf("Congratulations! You've earned the \"%s\" badge!", b.Name)
	return true, createNotification(tx, userID, content)
}

// isRetryableConflict reports transaction contention (deadlock,
// serialization failure, sqlite busy) that is worth one more attempt.
func isRetryableConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// POST /events/{eventId}/approve/{userId}  (admin)
func (a *app) handleApproveParticipation(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := chi.URLParam(r, "userId")

	var result *ApprovalResult
	retrier := retry.NewRetrier(3, 50*time.Millisecond, time.Second)
	err := retrier.RunContext(r.Context(), func(ctx context.Context) error {
		res, err := a.approveParticipation(ctx, eventID, userID)
		if err != nil {
			if isRetryableConflict(err) {
				return err
			}
			return retry.Stop(err)
		}
		result = res
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrParticipationNotFound):
			errorJSON(w, http.StatusNotFound, "no pending participation for this user and event")
		case errors.Is(err, ErrAlreadyApproved):
			errorJSON(w, http.StatusConflict, "participation already approved")
		case isRetryableConflict(err):
			errorJSON(w, http.StatusConflict, "approval conflicted with a concurrent request, retry later")
		default:
			log.Error().Err(err).Str("eventId", eventID).Str("userId", userID).Msg("approve participation failed")
			errorJSON(w, http.StatusInternalServerError, "db error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Participation approved and credits awarded.",
		"user":      toDTO(result.User),
		"newBadges": result.NewBadges,
	})
}
