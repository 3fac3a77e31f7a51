package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestApp opens a throwaway sqlite database with the production schema.
// A single connection keeps concurrent writers serialized the same way the
// postgres pool's row locks do.
func setupTestApp(t *testing.T) *app {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "plus_test.db")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?cache=shared", dbPath)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, autoMigrate(db))

	return &app{
		cfg: Config{JWTSecret: "test-secret"},
		db:  db,
		idp: &fakeIdentityProvider{},
	}
}

// fakeIdentityProvider accepts any credentials and invents stable subjects,
// so handler tests never touch the network.
type fakeIdentityProvider struct {
	rejectAll bool
}

func (f *fakeIdentityProvider) subject(email string) *supabaseUser {
	return &supabaseUser{ID: "sub-" + email, Email: email}
}

func (f *fakeIdentityProvider) SignUp(_ context.Context, email, _ string) (*supabaseUser, error) {
	if f.rejectAll {
		return nil, &upstreamAuthError{msg: "signup rejected"}
	}
	return f.subject(email), nil
}

func (f *fakeIdentityProvider) SignInWithPassword(_ context.Context, email, _ string) (*supabaseUser, error) {
	if f.rejectAll {
		return nil, &upstreamAuthError{msg: "invalid credentials"}
	}
	return f.subject(email), nil
}

func (f *fakeIdentityProvider) SignInWithIDToken(_ context.Context, _, _ string) (*supabaseUser, error) {
	if f.rejectAll {
		return nil, &upstreamAuthError{msg: "invalid id token"}
	}
	u := f.subject("oauth@example.com")
	u.UserMetadata = map[string]any{"full_name": "OAuth User"}
	return u, nil
}

func (f *fakeIdentityProvider) DeleteUser(_ context.Context, _ string) error {
	if f.rejectAll {
		return errors.New("delete failed")
	}
	return nil
}

func createTestUser(t *testing.T, a *app, name, role string, credits int) User {
	t.Helper()
	u := User{
		ID:                newID(),
		Name:              name,
		Email:             fmt.Sprintf("%s@example.com", newID()),
		Role:              role,
		PlusCredits:       credits,
		ProfileVisibility: VisibilityPublic,
	}
	require.NoError(t, a.db.Create(&u).Error)
	return u
}

func createTestEvent(t *testing.T, a *app, title string) Event {
	t.Helper()
	ev := Event{
		ID:             newID(),
		Title:          title,
		Date:           time.Now().Add(24 * time.Hour),
		AvailableSlots: 20,
	}
	require.NoError(t, a.db.Create(&ev).Error)
	return ev
}

func createPendingParticipation(t *testing.T, a *app, userID, eventID string) Participation {
	t.Helper()
	p := Participation{ID: newID(), UserID: userID, EventID: eventID, Status: ParticipationPending}
	require.NoError(t, a.db.Create(&p).Error)
	return p
}

// seedBadgeCatalog creates the catalog entries the rule table refers to.
func seedBadgeCatalog(t *testing.T, a *app) {
	t.Helper()
	for _, rule := range badgeRules {
		b := Badge{ID: newID(), Name: rule.badgeName, Description: "seeded"}
		require.NoError(t, a.db.Create(&b).Error)
	}
}

func bearerToken(t *testing.T, a *app, u User) string {
	t.Helper()
	tok, err := signToken(a.cfg.JWTSecret, u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doRequest(t *testing.T, h http.Handler, method, path, auth string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
