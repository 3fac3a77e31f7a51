package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	t.Run("MissingToken", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/me", "Token abc", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("TamperedToken", func(t *testing.T) {
		u := createTestUser(t, a, "Victim", RoleMember, 0)
		tok := bearerToken(t, a, u)
		rec := doRequest(t, router, http.MethodGet, "/me", tok+"x", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ValidToken", func(t *testing.T) {
		u := createTestUser(t, a, "Valid", RoleMember, 0)
		rec := doRequest(t, router, http.MethodGet, "/me", bearerToken(t, a, u), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSignupAndLogin(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	body := []byte(`{"email":"ada@example.com","password":"hunter22","name":"Ada"}`)
	rec := doRequest(t, router, http.MethodPost, "/signup", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var u User
	require.NoError(t, a.db.First(&u, "email = ?", "ada@example.com").Error)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, RoleMember, u.Role)
	assert.Equal(t, 0, u.PlusCredits)

	rec = doRequest(t, router, http.MethodPost, "/login", "", []byte(`{"email":"ada@example.com","password":"hunter22"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)

	claims, err := parseToken(a.cfg.JWTSecret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, RoleMember, claims.Role)
}

func TestSignupRejectedUpstream(t *testing.T) {
	a := setupTestApp(t)
	a.idp = &fakeIdentityProvider{rejectAll: true}
	router := newRouter(a)

	rec := doRequest(t, router, http.MethodPost, "/signup", "", []byte(`{"email":"x@example.com","password":"pw"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, a.db.Model(&User{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "no mirror row when the provider rejects")
}

func TestRatingGuards(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	reviewer := createTestUser(t, a, "Reviewer", RoleMember, 0)
	reviewee := createTestUser(t, a, "Reviewee", RoleMember, 0)
	ev := createTestEvent(t, a, "Rated Event")
	auth := bearerToken(t, a, reviewer)
	path := "/events/" + ev.ID + "/ratings"

	t.Run("SelfRating", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"revieweeId":%q,"stars":5}`, reviewer.ID))
		rec := doRequest(t, router, http.MethodPost, path, auth, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("StarsOutOfRange", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"revieweeId":%q,"stars":6}`, reviewee.ID))
		rec := doRequest(t, router, http.MethodPost, path, auth, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("FirstRatingSucceeds", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"revieweeId":%q,"stars":4,"comment":"great"}`, reviewee.ID))
		rec := doRequest(t, router, http.MethodPost, path, auth, body)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("DuplicateRatingConflicts", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"revieweeId":%q,"stars":2}`, reviewee.ID))
		rec := doRequest(t, router, http.MethodPost, path, auth, body)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var count int64
		require.NoError(t, a.db.Model(&Rating{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}

func TestReactionUpsertLatestTypeWins(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	u := createTestUser(t, a, "Reactor", RoleMember, 0)
	auth := bearerToken(t, a, u)

	act := Activity{ID: newID(), UserID: u.ID, Content: "volunteered today"}
	require.NoError(t, a.db.Create(&act).Error)
	path := "/activities/" + act.ID + "/reactions"

	rec := doRequest(t, router, http.MethodPost, path, auth, []byte(`{"type":"like"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var first Reaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	// The repeat reaction must succeed, not error, and respond with the
	// surviving row: the original id, the new type.
	rec = doRequest(t, router, http.MethodPost, path, auth, []byte(`{"type":"love"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var second Reaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "love", second.Type)

	var reactions []Reaction
	require.NoError(t, a.db.Where("activity_id = ?", act.ID).Find(&reactions).Error)
	require.Len(t, reactions, 1)
	assert.Equal(t, "love", reactions[0].Type)
}

func TestGetEventRoundTripsDate(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	ev := createTestEvent(t, a, "Beach Cleanup")

	rec := doRequest(t, router, http.MethodGet, "/events/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, ev.ID, out.ID)
	assert.True(t, out.Date.Equal(ev.Date), "stored date must survive the read-back")

	rec = doRequest(t, router, http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateEventPartial(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	u := createTestUser(t, a, "Organizer", RoleMember, 0)
	auth := bearerToken(t, a, u)
	ev := createTestEvent(t, a, "Original Title")
	path := "/events/" + ev.ID

	t.Run("SlotsCanGoToZero", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path, auth, []byte(`{"available_slots":0}`))
		require.Equal(t, http.StatusOK, rec.Code)

		var fresh Event
		require.NoError(t, a.db.First(&fresh, "id = ?", ev.ID).Error)
		assert.Equal(t, 0, fresh.AvailableSlots)
		assert.Equal(t, "Original Title", fresh.Title, "absent fields keep their value")
	})

	t.Run("EmptyTitleRejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path, auth, []byte(`{"title":"  "}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("NegativeSlotsRejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path, auth, []byte(`{"available_slots":-1}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TitleOnlyLeavesSlotsAlone", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, path, auth, []byte(`{"title":"Renamed"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		var fresh Event
		require.NoError(t, a.db.First(&fresh, "id = ?", ev.ID).Error)
		assert.Equal(t, "Renamed", fresh.Title)
		assert.Equal(t, 0, fresh.AvailableSlots)
	})
}

func TestJoinEventTwiceConflicts(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	u := createTestUser(t, a, "Joiner", RoleMember, 0)
	ev := createTestEvent(t, a, "Joinable")
	auth := bearerToken(t, a, u)
	path := "/events/" + ev.ID + "/join"

	rec := doRequest(t, router, http.MethodPost, path, auth, []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, router, http.MethodPost, path, auth, []byte(`{}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	require.NoError(t, a.db.Model(&Participation{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLeaderboardOrderAndLimit(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	for i := 0; i < 12; i++ {
		createTestUser(t, a, fmt.Sprintf("User %d", i), RoleMember, (i*37)%120)
	}

	rec := doRequest(t, router, http.MethodGet, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []userDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.LessOrEqual(t, len(out), 10)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].PlusCredits, out[i].PlusCredits, "leaderboard must be non-increasing")
	}
}

func TestApproveEndpointRequiresAdmin(t *testing.T) {
	a := setupTestApp(t)
	seedBadgeCatalog(t, a)
	router := newRouter(a)

	member := createTestUser(t, a, "Member", RoleMember, 0)
	admin := createTestUser(t, a, "Admin", RoleAdmin, 0)
	ev := createTestEvent(t, a, "Guarded Event")
	createPendingParticipation(t, a, member.ID, ev.ID)
	path := "/events/" + ev.ID + "/approve/" + member.ID

	rec := doRequest(t, router, http.MethodPost, path, bearerToken(t, a, member), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodPost, path, bearerToken(t, a, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Repeating the admin click is a conflict, not a second award.
	rec = doRequest(t, router, http.MethodPost, path, bearerToken(t, a, admin), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var fresh User
	require.NoError(t, a.db.First(&fresh, "id = ?", member.ID).Error)
	assert.Equal(t, creditAward, fresh.PlusCredits)
}

func TestVisibilityValidation(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	u := createTestUser(t, a, "Shy", RoleMember, 0)
	auth := bearerToken(t, a, u)

	rec := doRequest(t, router, http.MethodPatch, "/users/me/visibility", auth, []byte(`{"profileVisibility":"friends-only"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/users/me/visibility", auth, []byte(`{"profileVisibility":"private"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh User
	require.NoError(t, a.db.First(&fresh, "id = ?", u.ID).Error)
	assert.Equal(t, VisibilityPrivate, fresh.ProfileVisibility)
}

func TestAdminAnalytics(t *testing.T) {
	a := setupTestApp(t)
	seedBadgeCatalog(t, a)
	router := newRouter(a)

	admin := createTestUser(t, a, "Admin", RoleAdmin, 50)
	member := createTestUser(t, a, "Member", RoleMember, 30)
	ev := createTestEvent(t, a, "Counted Event")
	createPendingParticipation(t, a, member.ID, ev.ID)

	rec := doRequest(t, router, http.MethodPost, "/events/"+ev.ID+"/approve/"+member.ID, bearerToken(t, a, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/admin/analytics", bearerToken(t, a, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		TotalUsers          int64 `json:"totalUsers"`
		TotalEvents         int64 `json:"totalEvents"`
		TotalCredits        int64 `json:"totalCredits"`
		TotalParticipations int64 `json:"totalParticipations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 2, out.TotalUsers)
	assert.EqualValues(t, 1, out.TotalEvents)
	assert.EqualValues(t, 90, out.TotalCredits) // 50 + 30 + 10 award
	assert.EqualValues(t, 1, out.TotalParticipations)

	// Analytics stays admin-only.
	rec = doRequest(t, router, http.MethodGet, "/admin/analytics", bearerToken(t, a, member), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShareSummaries(t *testing.T) {
	a := setupTestApp(t)
	router := newRouter(a)

	u := createTestUser(t, a, "Sharer", RoleMember, 42)
	assoc := Association{ID: newID(), Name: "Green Earth"}
	require.NoError(t, a.db.Create(&assoc).Error)
	ev := Event{ID: newID(), Title: "Tree Planting", AssociationID: assoc.ID, Date: u.CreatedAt}
	require.NoError(t, a.db.Create(&ev).Error)

	rec := doRequest(t, router, http.MethodGet, "/share/user/"+u.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sharer")
	assert.Contains(t, rec.Body.String(), "42")

	rec = doRequest(t, router, http.MethodGet, "/share/event/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tree Planting")
	assert.Contains(t, rec.Body.String(), "Green Earth")

	rec = doRequest(t, router, http.MethodGet, "/share/user/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
