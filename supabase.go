package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// supabaseUser is the slice of the provider's user record we care about:
// the stable subject id plus profile claims mirrored into the local table.
type supabaseUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// FullName pulls the display name claim, falling back to the email.
func (u *supabaseUser) FullName() string {
	if u.UserMetadata != nil {
		if v, ok := u.UserMetadata["full_name"].(string); ok && v != "" {
			return v
		}
	}
	return u.Email
}

type supabaseSession struct {
	AccessToken string        `json:"access_token"`
	User        *supabaseUser `json:"user"`
}

// upstreamAuthError is returned when the identity provider rejects a request
// (bad credentials, duplicate signup, invalid id token).
type upstreamAuthError struct{ msg string }

func (e *upstreamAuthError) Error() string { return e.msg }

func isUpstreamAuthError(err error) bool {
	var ue *upstreamAuthError
	return errors.As(err, &ue)
}

// supabaseClient talks to the Supabase auth REST surface. It is the only
// place credentials are ever seen; the rest of the app deals in subject ids.
type supabaseClient struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
}

func newSupabaseClient(baseURL, anonKey, serviceKey string) *supabaseClient {
	return &supabaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// SignUp registers email/password credentials with the provider and returns
// the new subject.
func (c *supabaseClient) SignUp(ctx context.Context, email, password string) (*supabaseUser, error) {
	var out struct {
		supabaseUser
		User *supabaseUser `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/v1/signup", c.anonKey, body, &out); err != nil {
		return nil, err
	}
	if out.User != nil {
		return out.User, nil
	}
	if out.ID == "" {
		return nil, &upstreamAuthError{msg: "provider returned no user"}
	}
	return &out.supabaseUser, nil
}

// SignInWithPassword performs the password grant and returns the subject.
func (c *supabaseClient) SignInWithPassword(ctx context.Context, email, password string) (*supabaseUser, error) {
	var out supabaseSession
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", c.anonKey, body, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &upstreamAuthError{msg: "provider returned no user"}
	}
	return out.User, nil
}

// SignInWithIDToken exchanges an OAuth id token (e.g. Google) for a subject.
func (c *supabaseClient) SignInWithIDToken(ctx context.Context, provider, idToken string) (*supabaseUser, error) {
	var out supabaseSession
	body := map[string]string{"provider": provider, "id_token": idToken}
	if err := c.post(ctx, "/auth/v1/token?grant_type=id_token", c.anonKey, body, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &upstreamAuthError{msg: "provider returned no user"}
	}
	return out.User, nil
}

// DeleteUser removes the provider-side record. Requires the service role key.
func (c *supabaseClient) DeleteUser(ctx context.Context, userID string) error {
	if c.serviceKey == "" {
		return errors.New("supabase service role key not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/auth/v1/admin/users/"+userID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeUpstreamError(resp)
	}
	return nil
}

func (c *supabaseClient) post(ctx context.Context, path, key string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeUpstreamError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeUpstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &apiErr)
	msg := firstNonEmpty(apiErr.Msg, apiErr.Message, apiErr.ErrorDescription)
	if msg == "" {
		msg = fmt.Sprintf("identity provider error (status %d)", resp.StatusCode)
	}
	return &upstreamAuthError{msg: msg}
}
