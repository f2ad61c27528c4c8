package me

import usersvc "github.com/janisto/echo-identity/internal/service/user"

// UpdateProfileInput for PATCH /me. Absent or null fields are left unchanged.
type UpdateProfileInput struct {
	DisplayName *string `json:"displayName,omitempty" example:"Alice"`
	AvatarURL   *string `json:"avatarUrl,omitempty"   example:"https://cdn.example.com/a.png"`
	Bio         *string `json:"bio,omitempty"         example:"Trail runner"`
}

func (in UpdateProfileInput) patch() usersvc.ProfilePatch {
	return usersvc.ProfilePatch{
		DisplayName: in.DisplayName,
		AvatarURL:   in.AvatarURL,
		Bio:         in.Bio,
	}
}

// NotificationsInput replaces the stored notification settings as a whole.
// Flags left out take their default (inApp true, email and push false).
type NotificationsInput struct {
	InApp *bool `json:"inApp,omitempty" example:"true"`
	Email *bool `json:"email,omitempty" example:"false"`
	Push  *bool `json:"push,omitempty"  example:"false"`
}

func (in NotificationsInput) value() usersvc.Notifications {
	n := usersvc.DefaultNotifications()
	if in.InApp != nil {
		n.InApp = *in.InApp
	}
	if in.Email != nil {
		n.Email = *in.Email
	}
	if in.Push != nil {
		n.Push = *in.Push
	}
	return n
}

// UpdatePreferencesInput for PATCH /me/preferences.
type UpdatePreferencesInput struct {
	Theme         *string             `json:"theme,omitempty"         example:"DARK"  enums:"LIGHT,DARK,SYSTEM"`
	DistanceUnit  *string             `json:"distanceUnit,omitempty"  example:"MILES" enums:"MILES,KILOMETERS"`
	Locale        *string             `json:"locale,omitempty"        example:"fi-FI"`
	Notifications *NotificationsInput `json:"notifications,omitempty"`
}

func (in UpdatePreferencesInput) patch() usersvc.PreferencesPatch {
	var p usersvc.PreferencesPatch
	if in.Theme != nil {
		theme := usersvc.Theme(*in.Theme)
		p.Theme = &theme
	}
	if in.DistanceUnit != nil {
		unit := usersvc.DistanceUnit(*in.DistanceUnit)
		p.DistanceUnit = &unit
	}
	p.Locale = in.Locale
	if in.Notifications != nil {
		n := in.Notifications.value()
		p.Notifications = &n
	}
	return p
}
