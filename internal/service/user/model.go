package user

import (
	"errors"
	"time"
)

// Service errors
var (
	ErrNotFound = errors.New("user not found")
)

// Role classifies a user. It is assigned outside this service.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Status is the lifecycle state of a user. Transitions happen outside this service.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusSuspended   Status = "SUSPENDED"
	StatusDeactivated Status = "DEACTIVATED"
)

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "LIGHT"
	ThemeDark   Theme = "DARK"
	ThemeSystem Theme = "SYSTEM"
)

// DistanceUnit is the preferred unit for displaying distances.
type DistanceUnit string

const (
	DistanceMiles      DistanceUnit = "MILES"
	DistanceKilometers DistanceUnit = "KILOMETERS"
)

// DefaultLocale is the BCP 47 tag assigned to new users.
const DefaultLocale = "en-US"

// Notifications holds per-channel notification opt-ins.
type Notifications struct {
	InApp bool
	Email bool
	Push  bool
}

// DefaultNotifications returns the notification settings of a new user.
func DefaultNotifications() Notifications {
	return Notifications{InApp: true, Email: false, Push: false}
}

// Preferences is an immutable value embedded in every User.
// Updates produce a new value; see MergePreferences.
type Preferences struct {
	Theme         Theme
	DistanceUnit  DistanceUnit
	Locale        string
	Notifications Notifications
}

// DefaultPreferences returns the structural default preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         ThemeLight,
		DistanceUnit:  DistanceMiles,
		Locale:        DefaultLocale,
		Notifications: DefaultNotifications(),
	}
}

// IsZero reports whether p was never initialized.
func (p Preferences) IsZero() bool {
	return p == Preferences{}
}

// Materialize returns p with every never-set field replaced by its default.
// A zero Preferences materializes to DefaultPreferences.
func (p Preferences) Materialize() Preferences {
	if p.IsZero() {
		return DefaultPreferences()
	}
	if p.Theme == "" {
		p.Theme = ThemeLight
	}
	if p.DistanceUnit == "" {
		p.DistanceUnit = DistanceMiles
	}
	if p.Locale == "" {
		p.Locale = DefaultLocale
	}
	return p
}

// User is the stored profile of one identity provider subject.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   *string
	Bio         *string
	Role        Role
	Status      Status
	Preferences Preferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// clone returns a deep copy so callers never share pointer fields with a store.
func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.AvatarURL != nil {
		v := *u.AvatarURL
		c.AvatarURL = &v
	}
	if u.Bio != nil {
		v := *u.Bio
		c.Bio = &v
	}
	return &c
}

// SyncParams carries identity provider claims for SyncUser.
type SyncParams struct {
	ID          string `json:"id"          validate:"required,max=255"`
	Email       string `json:"email"       validate:"required,email,max=320"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=100"`
}

// ProfilePatch for updating self-service profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=100"`
	AvatarURL   *string `json:"avatarUrl,omitempty"   validate:"omitempty,max=2048"`
	Bio         *string `json:"bio,omitempty"         validate:"omitempty,max=5000"`
}

// PreferencesPatch for updating preferences. Nil fields are left untouched;
// a non-nil Notifications replaces the stored value as a whole.
type PreferencesPatch struct {
	Theme         *Theme         `json:"theme,omitempty"         validate:"omitempty,oneof=LIGHT DARK SYSTEM"`
	DistanceUnit  *DistanceUnit  `json:"distanceUnit,omitempty"  validate:"omitempty,oneof=MILES KILOMETERS"`
	Locale        *string        `json:"locale,omitempty"        validate:"omitempty,bcp47"`
	Notifications *Notifications `json:"notifications,omitempty"`
}
