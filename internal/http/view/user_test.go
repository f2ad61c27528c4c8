package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

func sampleUser() *usersvc.User {
	bio := "hi"
	return &usersvc.User{
		ID:          "u1",
		Email:       "a@x.com",
		DisplayName: "Alice",
		Bio:         &bio,
		Role:        usersvc.RoleUser,
		Status:      usersvc.StatusActive,
		Preferences: usersvc.Preferences{
			Theme:         usersvc.ThemeDark,
			DistanceUnit:  usersvc.DistanceKilometers,
			Locale:        "fi-FI",
			Notifications: usersvc.Notifications{InApp: false, Email: true, Push: true},
		},
		CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC),
		UpdatedAt: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestFromUser_JSON(t *testing.T) {
	b, err := json.Marshal(FromUser(sampleUser()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"id":          "u1",
		"email":       "a@x.com",
		"displayName": "Alice",
		"bio":         "hi",
		"role":        "USER",
		"status":      "ACTIVE",
		"createdAt":   "2024-01-15T10:30:00.123Z",
		"updatedAt":   "2024-02-01T08:00:00.000Z",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: expected %v, got %v", k, v, got[k])
		}
	}
	if _, ok := got["avatarUrl"]; ok {
		t.Fatal("expected avatarUrl to be omitted when unset")
	}

	prefs := got["preferences"].(map[string]any)
	if prefs["theme"] != "DARK" || prefs["distanceUnit"] != "KILOMETERS" || prefs["locale"] != "fi-FI" {
		t.Fatalf("unexpected preferences %v", prefs)
	}
	notif := prefs["notifications"].(map[string]any)
	if notif["inApp"] != false || notif["email"] != true || notif["push"] != true {
		t.Fatalf("unexpected notifications %v", notif)
	}
}

func TestFromUser_MaterializesMissingPreferences(t *testing.T) {
	u := sampleUser()
	u.Preferences = usersvc.Preferences{}

	v := FromUser(u)

	if v.Preferences.Theme != "LIGHT" || v.Preferences.DistanceUnit != "MILES" || v.Preferences.Locale != "en-US" {
		t.Fatalf("expected defaults, got %+v", v.Preferences)
	}
	if !v.Preferences.Notifications.InApp || v.Preferences.Notifications.Email || v.Preferences.Notifications.Push {
		t.Fatalf("expected default notifications, got %+v", v.Preferences.Notifications)
	}
}

func TestFromUser_DoesNotAlias(t *testing.T) {
	u := sampleUser()
	v := FromUser(u)

	*u.Bio = "changed"
	if *v.Bio != "hi" {
		t.Fatalf("expected projection to be independent of the record, got %q", *v.Bio)
	}
}

func TestFromUser_CBOR(t *testing.T) {
	b, err := cbor.Marshal(FromUser(sampleUser()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got User
	if err := cbor.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "u1" || got.Preferences.Locale != "fi-FI" || got.Bio == nil || *got.Bio != "hi" {
		t.Fatalf("unexpected decoded view %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC)) {
		t.Fatalf("expected createdAt truncated to millis, got %v", got.CreatedAt)
	}
}
