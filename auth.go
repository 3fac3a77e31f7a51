package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// identityProvider is the external auth oracle. Credentials never touch the
// rest of the app; we only ever see verified subjects.
type identityProvider interface {
	SignUp(ctx context.Context, email, password string) (*supabaseUser, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabaseUser, error)
	SignInWithIDToken(ctx context.Context, provider, idToken string) (*supabaseUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

type authReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	PlusCredits       int    `json:"plus_credits"`
	ProfileVisibility string `json:"profileVisibility"`
}

func toDTO(u User) userDTO {
	return userDTO{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		PlusCredits:       u.PlusCredits,
		ProfileVisibility: u.ProfileVisibility,
	}
}

// POST /signup
func (a *app) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in authReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || in.Password == "" {
		errorJSON(w, http.StatusBadRequest, "email and password required")
		return
	}

	subject, err := a.idp.SignUp(r.Context(), in.Email, in.Password)
	if err != nil {
		if isUpstreamAuthError(err) {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Email
	}
	u := User{
		ID:                subject.ID,
		Name:              name,
		Email:             in.Email,
		Role:              RoleMember,
		ProfileVisibility: VisibilityPublic,
	}
	if err := a.db.WithContext(r.Context()).Create(&u).Error; err != nil {
		log.Error().Err(err).Str("subject", subject.ID).Msg("signup: user mirror insert failed")
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Signup successful", "user": toDTO(u)})
}

// POST /login
func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in authReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	subject, err := a.idp.SignInWithPassword(r.Context(), in.Email, in.Password)
	if err != nil {
		if isUpstreamAuthError(err) {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	u, err := a.ensureMirror(r, subject, in.Email)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	tok, err := signToken(a.cfg.JWTSecret, u.ID, u.Email, u.Role)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "token error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "token": tok, "user": toDTO(*u)})
}

// POST /auth/google
func (a *app) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeJSON(r, &in); err != nil || strings.TrimSpace(in.AccessToken) == "" {
		errorJSON(w, http.StatusBadRequest, "access_token required")
		return
	}

	subject, err := a.idp.SignInWithIDToken(r.Context(), "google", in.AccessToken)
	if err != nil {
		if isUpstreamAuthError(err) {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		errorJSON(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	// Upsert by email: the provider account may predate the local mirror.
	u := User{
		ID:                subject.ID,
		Name:              subject.FullName(),
		Email:             subject.Email,
		Role:              RoleMember,
		ProfileVisibility: VisibilityPublic,
	}
	err = a.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(&u).Error
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if err := a.db.WithContext(r.Context()).First(&u, "email = ?", subject.Email).Error; err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	tok, err := signToken(a.cfg.JWTSecret, u.ID, u.Email, u.Role)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "token error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Google login successful", "token": tok, "user": toDTO(u)})
}

// ensureMirror loads the local user row for a verified subject, creating it
// if the signup happened out of band.
func (a *app) ensureMirror(r *http.Request, subject *supabaseUser, email string) (*User, error) {
	var u User
	err := a.db.WithContext(r.Context()).First(&u, "id = ?", subject.ID).Error
	if err == nil {
		return &u, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	u = User{
		ID:                subject.ID,
		Name:              subject.FullName(),
		Email:             firstNonEmpty(email, subject.Email),
		Role:              RoleMember,
		ProfileVisibility: VisibilityPublic,
	}
	if err := a.db.WithContext(r.Context()).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
