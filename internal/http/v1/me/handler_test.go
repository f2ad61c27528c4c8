package me

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/labstack/echo/v5"

	"github.com/janisto/echo-identity/internal/http/view"
	"github.com/janisto/echo-identity/internal/platform/auth"
	"github.com/janisto/echo-identity/internal/platform/respond"
	"github.com/janisto/echo-identity/internal/platform/validate"
	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

// errStore wraps a real store and injects errors for specific operations.
type errStore struct {
	usersvc.Store
	getErr    error
	upsertErr error
}

func (s *errStore) Get(ctx context.Context, id string) (*usersvc.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, id)
}

func (s *errStore) Upsert(ctx context.Context, u *usersvc.User) (*usersvc.User, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return s.Store.Upsert(ctx, u)
}

var epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func newService(t *testing.T, store usersvc.Store, seed bool) *usersvc.Service {
	t.Helper()
	svc := usersvc.NewService(store, usersvc.WithClock(func() time.Time { return epoch }))
	if seed {
		caller := auth.TestUser()
		_, err := svc.SyncUser(context.Background(), usersvc.SyncParams{
			ID:          caller.Subject,
			Email:       caller.Email,
			DisplayName: caller.Name,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return svc
}

func setupEcho(verifier auth.Verifier, svc Service) *echo.Echo {
	e := echo.New()
	e.Validator = validate.New()
	e.HTTPErrorHandler = respond.NewHTTPErrorHandler()

	g := e.Group("/v1", auth.Middleware(verifier))
	Register(g, svc)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeUser(t *testing.T, rec *httptest.ResponseRecorder) view.User {
	t.Helper()
	var u view.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("failed to unmarshal: %v (%s)", err, rec.Body.String())
	}
	return u
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) respond.ProblemDetails {
	t.Helper()
	var p respond.ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	return p
}

func TestGetMe_Success(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	rec := do(e, http.MethodGet, "/v1/me", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	u := decodeUser(t, rec)
	if u.ID != "test-user-123" || u.Email != "test@example.com" || u.DisplayName != "Test User" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.Role != "USER" || u.Status != "ACTIVE" {
		t.Fatalf("expected USER/ACTIVE, got %s/%s", u.Role, u.Status)
	}
	if u.Preferences.Theme != "LIGHT" || !u.Preferences.Notifications.InApp {
		t.Fatalf("expected default preferences, got %+v", u.Preferences)
	}
}

func TestGetMe_CBOR(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	req.Header.Set("Accept", "application/cbor")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor, got %q", ct)
	}
	var u view.User
	if err := cbor.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("failed to decode cbor: %v", err)
	}
	if u.ID != "test-user-123" {
		t.Fatalf("unexpected id %q", u.ID)
	}
}

func TestGetMe_NotSynced(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), false)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	rec := do(e, http.MethodGet, "/v1/me", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if p := decodeProblem(t, rec); p.Detail != "user not found" {
		t.Fatalf("expected 'user not found', got %q", p.Detail)
	}
}

func TestGetMe_Unauthorized(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), true)
	e := setupEcho(&auth.MockVerifier{Error: auth.ErrInvalidToken}, svc)

	if rec := do(e, http.MethodGet, "/v1/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUpdateMe_PartialUpdate(t *testing.T) {
	store := usersvc.NewMemoryStore()
	svc := newService(t, store, true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	rec := do(e, http.MethodPatch, "/v1/me", `{"bio":"hi"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	u := decodeUser(t, rec)
	if u.Bio == nil || *u.Bio != "hi" {
		t.Fatalf("expected bio 'hi', got %v", u.Bio)
	}
	if u.DisplayName != "Test User" || u.AvatarURL != nil {
		t.Fatalf("expected untouched fields, got %+v", u)
	}
}

func TestUpdateMe_IgnoresProtectedFields(t *testing.T) {
	store := usersvc.NewMemoryStore()
	svc := newService(t, store, true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	rec := do(e, http.MethodPatch, "/v1/me",
		`{"id":"other","email":"evil@x.com","role":"ADMIN","status":"SUSPENDED","displayName":"New"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stored, err := store.Get(context.Background(), "test-user-123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Email != "test@example.com" || stored.Role != usersvc.RoleUser || stored.Status != usersvc.StatusActive {
		t.Fatalf("protected fields changed: %+v", stored)
	}
	if stored.DisplayName != "New" {
		t.Fatalf("expected displayName 'New', got %q", stored.DisplayName)
	}
	if _, err := store.Get(context.Background(), "other"); !errors.Is(err, usersvc.ErrNotFound) {
		t.Fatalf("expected no record for 'other', got %v", err)
	}
}

func TestUpdateMe_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		location string
	}{
		{"empty display name", `{"displayName":""}`, "displayName"},
		{"display name too long", `{"displayName":"` + strings.Repeat("a", 101) + `"}`, "displayName"},
		{"avatar too long", `{"avatarUrl":"` + strings.Repeat("a", 2049) + `"}`, "avatarUrl"},
		{"bio too long", `{"bio":"` + strings.Repeat("a", 5001) + `"}`, "bio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, usersvc.NewMemoryStore(), true)
			e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

			rec := do(e, http.MethodPatch, "/v1/me", tt.body)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
			p := decodeProblem(t, rec)
			if len(p.Errors) != 1 || p.Errors[0].Location != tt.location {
				t.Fatalf("expected error at %q, got %+v", tt.location, p.Errors)
			}
		})
	}
}

func TestUpdateMe_MalformedBody(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	if rec := do(e, http.MethodPatch, "/v1/me", `{"bio":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdatePreferences_MergesFields(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	rec := do(e, http.MethodPatch, "/v1/me/preferences", `{"theme":"DARK","locale":"fi-fi"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	p := decodeUser(t, rec).Preferences
	if p.Theme != "DARK" || p.Locale != "fi-FI" {
		t.Fatalf("expected DARK/fi-FI, got %s/%s", p.Theme, p.Locale)
	}
	if p.DistanceUnit != "MILES" || !p.Notifications.InApp {
		t.Fatalf("expected untouched fields to keep defaults, got %+v", p)
	}
}

func TestUpdatePreferences_NotificationsReplaced(t *testing.T) {
	svc := newService(t, usersvc.NewMemoryStore(), true)
	e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

	rec := do(e, http.MethodPatch, "/v1/me/preferences",
		`{"notifications":{"inApp":true,"email":true,"push":false}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Omitted flags reset to their defaults rather than keeping email=true.
	rec = do(e, http.MethodPatch, "/v1/me/preferences", `{"notifications":{"push":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	n := decodeUser(t, rec).Preferences.Notifications
	if !n.InApp || n.Email || !n.Push {
		t.Fatalf("expected {inApp:true,email:false,push:true}, got %+v", n)
	}
}

func TestUpdatePreferences_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		location string
	}{
		{"unknown theme", `{"theme":"NEON"}`, "theme"},
		{"unknown unit", `{"distanceUnit":"FURLONGS"}`, "distanceUnit"},
		{"bad locale", `{"locale":"not a locale"}`, "locale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, usersvc.NewMemoryStore(), true)
			e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

			rec := do(e, http.MethodPatch, "/v1/me/preferences", tt.body)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
			if p := decodeProblem(t, rec); len(p.Errors) != 1 || p.Errors[0].Location != tt.location {
				t.Fatalf("expected error at %q, got %+v", tt.location, p.Errors)
			}
		})
	}
}

func TestHandlers_StoreFailures(t *testing.T) {
	tests := []struct {
		name   string
		store  func(base usersvc.Store) usersvc.Store
		method string
		path   string
		body   string
		status int
	}{
		{
			"get fails",
			func(base usersvc.Store) usersvc.Store { return &errStore{Store: base, getErr: errors.New("db down")} },
			http.MethodGet, "/v1/me", "", http.StatusInternalServerError,
		},
		{
			"upsert fails",
			func(base usersvc.Store) usersvc.Store { return &errStore{Store: base, upsertErr: errors.New("db down")} },
			http.MethodPatch, "/v1/me", `{"bio":"x"}`, http.StatusInternalServerError,
		},
		{
			"preferences on missing user",
			func(base usersvc.Store) usersvc.Store { return &errStore{Store: base, getErr: usersvc.ErrNotFound} },
			http.MethodPatch, "/v1/me/preferences", `{"theme":"DARK"}`, http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := usersvc.NewMemoryStore()
			newService(t, base, true)
			svc := newService(t, tt.store(base), false)
			e := setupEcho(&auth.MockVerifier{User: auth.TestUser()}, svc)

			rec := do(e, tt.method, tt.path, tt.body)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if p := decodeProblem(t, rec); strings.Contains(p.Detail, "db down") {
				t.Fatalf("storage error leaked to client: %q", p.Detail)
			}
		})
	}
}
