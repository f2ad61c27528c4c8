package user

import "time"

// userDocument is the persisted shape of a User in document and cache backends.
type userDocument struct {
	ID          string               `firestore:"id"                    json:"id"                    cbor:"id"`
	Email       string               `firestore:"email"                 json:"email"                 cbor:"email"`
	DisplayName string               `firestore:"displayName"           json:"displayName"           cbor:"displayName"`
	AvatarURL   *string              `firestore:"avatarUrl,omitempty"   json:"avatarUrl,omitempty"   cbor:"avatarUrl,omitempty"`
	Bio         *string              `firestore:"bio,omitempty"         json:"bio,omitempty"         cbor:"bio,omitempty"`
	Role        string               `firestore:"role"                  json:"role"                  cbor:"role"`
	Status      string               `firestore:"status"                json:"status"                cbor:"status"`
	Preferences *preferencesDocument `firestore:"preferences,omitempty" json:"preferences,omitempty" cbor:"preferences,omitempty"`
	CreatedAt   time.Time            `firestore:"createdAt"             json:"createdAt"             cbor:"createdAt"`
	UpdatedAt   time.Time            `firestore:"updatedAt"             json:"updatedAt"             cbor:"updatedAt"`
}

// preferencesDocument is the stored preferences sub-document.
// Missing fields decode as empty and are materialized to defaults on read.
type preferencesDocument struct {
	Theme         string                 `firestore:"theme,omitempty"         json:"theme,omitempty"         cbor:"theme,omitempty"`
	DistanceUnit  string                 `firestore:"distanceUnit,omitempty"  json:"distanceUnit,omitempty"  cbor:"distanceUnit,omitempty"`
	Locale        string                 `firestore:"locale,omitempty"        json:"locale,omitempty"        cbor:"locale,omitempty"`
	Notifications *notificationsDocument `firestore:"notifications,omitempty" json:"notifications,omitempty" cbor:"notifications,omitempty"`
}

type notificationsDocument struct {
	InApp *bool `firestore:"inApp,omitempty" json:"inApp,omitempty" cbor:"inApp,omitempty"`
	Email *bool `firestore:"email,omitempty" json:"email,omitempty" cbor:"email,omitempty"`
	Push  *bool `firestore:"push,omitempty"  json:"push,omitempty"  cbor:"push,omitempty"`
}

func toDocument(u *User) userDocument {
	return userDocument{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Preferences: toPreferencesDocument(u.Preferences.Materialize()),
		CreatedAt:   u.CreatedAt.UTC(),
		UpdatedAt:   u.UpdatedAt.UTC(),
	}
}

func toPreferencesDocument(p Preferences) *preferencesDocument {
	inApp, email, push := p.Notifications.InApp, p.Notifications.Email, p.Notifications.Push
	return &preferencesDocument{
		Theme:        string(p.Theme),
		DistanceUnit: string(p.DistanceUnit),
		Locale:       p.Locale,
		Notifications: &notificationsDocument{
			InApp: &inApp,
			Email: &email,
			Push:  &push,
		},
	}
}

func (d userDocument) toUser() *User {
	return &User{
		ID:          d.ID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		AvatarURL:   d.AvatarURL,
		Bio:         d.Bio,
		Role:        Role(orDefault(d.Role, string(RoleUser))),
		Status:      Status(orDefault(d.Status, string(StatusActive))),
		Preferences: d.Preferences.toPreferences(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (d *preferencesDocument) toPreferences() Preferences {
	if d == nil {
		return DefaultPreferences()
	}
	p := Preferences{
		Theme:         Theme(d.Theme),
		DistanceUnit:  DistanceUnit(d.DistanceUnit),
		Locale:        d.Locale,
		Notifications: d.Notifications.toNotifications(),
	}
	return p.Materialize()
}

func (d *notificationsDocument) toNotifications() Notifications {
	n := DefaultNotifications()
	if d == nil {
		return n
	}
	if d.InApp != nil {
		n.InApp = *d.InApp
	}
	if d.Email != nil {
		n.Email = *d.Email
	}
	if d.Push != nil {
		n.Push = *d.Push
	}
	return n
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
