package main

import "time"

// Role and visibility values stored on User. The identity provider owns
// credentials; this table only mirrors the provider's subject id and profile.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// User mirrors the identity provider's user record. ID is the provider's
// subject id, so there is no local credential material at all.
type User struct {
	ID                string    `gorm:"primaryKey;type:text" json:"id"`
	Name              string    `gorm:"size:120;not null" json:"name"`
	Email             string    `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Role              string    `gorm:"size:16;not null;default:member" json:"role"`
	PlusCredits       int       `gorm:"not null;default:0" json:"plus_credits"`
	ProfileVisibility string    `gorm:"size:16;not null;default:public" json:"profileVisibility"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

type Association struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

type Event struct {
	ID             string    `gorm:"primaryKey;type:text" json:"id"`
	Title          string    `gorm:"size:200;not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	Location       string    `gorm:"size:200" json:"location"`
	Date           time.Time `gorm:"not null" json:"date"`
	AvailableSlots int       `gorm:"not null;default:0" json:"available_slots"`
	AssociationID  string    `gorm:"index;type:text;not null" json:"associationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"-"`
}

// Participation statuses. A row starts pending and the reward engine moves it
// to approved exactly once.
const (
	ParticipationPending  = "pending"
	ParticipationApproved = "approved"
)

// Participation is the status-bearing join between users and events. The
// unique index backs the at-most-one-live-participation invariant under
// concurrent joins.
type Participation struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_participation_user_event;type:text;not null" json:"userId"`
	EventID   string    `gorm:"uniqueIndex:idx_participation_user_event;type:text;not null" json:"eventId"`
	Status    string    `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// Badge is an immutable catalog entry; admins create them, the reward engine
// awards them by name.
type Badge struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:120;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IconURL     string    `gorm:"size:500" json:"iconUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserBadge records a badge held by a user. The unique index makes the award
// insert idempotent under concurrent approvals.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_badge;type:text;not null" json:"userId"`
	BadgeID   string    `gorm:"uniqueIndex:idx_user_badge;type:text;not null" json:"badgeId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Notification struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"index;type:text;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Activity struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"index;type:text;not null" json:"userId"`
	EventID   string    `gorm:"index;type:text" json:"eventId,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	ActivityID string    `gorm:"index;type:text;not null" json:"activityId"`
	UserID     string    `gorm:"type:text;not null" json:"userId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Reaction is unique per (user, activity); posting again replaces the type.
type Reaction struct {
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	UserID     string    `gorm:"uniqueIndex:idx_reaction_user_activity;type:text;not null" json:"userId"`
	ActivityID string    `gorm:"uniqueIndex:idx_reaction_user_activity;type:text;not null" json:"activityId"`
	Type       string    `gorm:"size:32;not null" json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"-"`
}

type Message struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	EventID   string    `gorm:"index;type:text;not null" json:"eventId"`
	SenderID  string    `gorm:"type:text;not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rating is unique per (reviewer, reviewee, event); self-rating is rejected
// before it ever reaches the store.
type Rating struct {
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	ReviewerID string    `gorm:"uniqueIndex:idx_rating_triplet;type:text;not null" json:"reviewerId"`
	RevieweeID string    `gorm:"uniqueIndex:idx_rating_triplet;type:text;not null" json:"revieweeId"`
	EventID    string    `gorm:"uniqueIndex:idx_rating_triplet;type:text;not null" json:"eventId"`
	Stars      int       `gorm:"not null" json:"stars"`
	Comment    string    `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}
