package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/janisto/echo-identity/internal/platform/auth"
	"github.com/janisto/echo-identity/internal/platform/respond"
	"github.com/janisto/echo-identity/internal/platform/validate"
	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

const syncBody = `{"id":"uid-1","email":"a@example.com","displayName":"Alice"}`

func setupTestServer(apiKey string, store usersvc.Store) *echo.Echo {
	e := echo.New()
	e.Validator = validate.New()
	e.HTTPErrorHandler = respond.NewHTTPErrorHandler()

	Register(e.Group("/internal/v1"), apiKey, usersvc.NewService(store))
	return e
}

func TestTrustedRoutes_APIKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		status     int
	}{
		{"matching key", "s3cret", "s3cret", http.StatusOK},
		{"wrong key", "s3cret", "guess", http.StatusForbidden},
		{"missing key", "s3cret", "", http.StatusForbidden},
		{"no key configured", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := usersvc.NewMemoryStore()
			e := setupTestServer(tt.configured, store)

			req := httptest.NewRequest(http.MethodPost, "/internal/v1/users/sync", strings.NewReader(syncBody))
			req.Header.Set("Content-Type", "application/json")
			if tt.sent != "" {
				req.Header.Set(auth.HeaderInternalAPIKey, tt.sent)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			wantStored := 0
			if tt.status == http.StatusOK {
				wantStored = 1
			}
			if store.Len() != wantStored {
				t.Fatalf("expected %d stored users, got %d", wantStored, store.Len())
			}
		})
	}
}

func TestTrustedRoutes_GetRequiresKey(t *testing.T) {
	e := setupTestServer("s3cret", usersvc.NewMemoryStore())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/v1/users/uid-1", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestTrustedRoutes_BearerTokenIsNotEnough(t *testing.T) {
	e := setupTestServer("s3cret", usersvc.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/internal/v1/users/uid-1", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
