// Package view holds the public representations returned by the HTTP API.
package view

import (
	"github.com/janisto/echo-identity/internal/platform/timeutil"
	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

// Notifications is the per-channel notification opt-in.
type Notifications struct {
	InApp bool `json:"inApp" cbor:"inApp" example:"true"`
	Email bool `json:"email" cbor:"email" example:"false"`
	Push  bool `json:"push"  cbor:"push"  example:"false"`
}

// Preferences is the user's display and notification settings.
type Preferences struct {
	Theme         string        `json:"theme"         cbor:"theme"         example:"LIGHT"      enums:"LIGHT,DARK,SYSTEM"`
	DistanceUnit  string        `json:"distanceUnit"  cbor:"distanceUnit"  example:"MILES"      enums:"MILES,KILOMETERS"`
	Locale        string        `json:"locale"        cbor:"locale"        example:"en-US"`
	Notifications Notifications `json:"notifications" cbor:"notifications"`
}

// User is the public view of a stored user.
type User struct {
	ID          string        `json:"id"                  cbor:"id"                  example:"firebase-uid-123"`
	Email       string        `json:"email"               cbor:"email"               example:"alice@example.com"`
	DisplayName string        `json:"displayName"         cbor:"displayName"         example:"Alice"`
	AvatarURL   *string       `json:"avatarUrl,omitempty" cbor:"avatarUrl,omitempty" example:"https://cdn.example.com/a.png"`
	Bio         *string       `json:"bio,omitempty"       cbor:"bio,omitempty"       example:"Trail runner"`
	Role        string        `json:"role"                cbor:"role"                example:"USER"   enums:"USER,ADMIN"`
	Status      string        `json:"status"              cbor:"status"              example:"ACTIVE" enums:"ACTIVE,SUSPENDED,DEACTIVATED"`
	Preferences Preferences   `json:"preferences"         cbor:"preferences"`
	CreatedAt   timeutil.Time `json:"createdAt"           cbor:"createdAt"           example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt   timeutil.Time `json:"updatedAt"           cbor:"updatedAt"           example:"2024-01-15T10:30:00.000Z"`
}

// FromUser projects u. Preferences are materialized so a record stored
// before a field existed still renders every field.
func FromUser(u *usersvc.User) User {
	p := u.Preferences.Materialize()
	return User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   copyString(u.AvatarURL),
		Bio:         copyString(u.Bio),
		Role:        string(u.Role),
		Status:      string(u.Status),
		Preferences: Preferences{
			Theme:        string(p.Theme),
			DistanceUnit: string(p.DistanceUnit),
			Locale:       p.Locale,
			Notifications: Notifications{
				InApp: p.Notifications.InApp,
				Email: p.Notifications.Email,
				Push:  p.Notifications.Push,
			},
		},
		CreatedAt: timeutil.NewTime(u.CreatedAt),
		UpdatedAt: timeutil.NewTime(u.UpdatedAt),
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
