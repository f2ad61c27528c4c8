// Package firebase initializes the Firebase Admin clients the service needs.
package firebase

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
)

// Config selects the project and which clients to create.
type Config struct {
	ProjectID string
	// Firestore is skipped when another store backend holds user records.
	SkipFirestore bool
}

// Clients holds the initialized Firebase Admin clients. Firestore is nil
// when Config.SkipFirestore was set.
type Clients struct {
	Auth      *fbauth.Client
	Firestore *firestore.Client
}

// InitializeClients creates the Firebase app and its clients. Credentials
// come from Application Default Credentials; the emulators are used when
// FIRESTORE_EMULATOR_HOST / FIREBASE_AUTH_EMULATOR_HOST are set.
func InitializeClients(ctx context.Context, cfg Config) (*Clients, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase: project id is required")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("firebase: new app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: auth client: %w", err)
	}

	clients := &Clients{Auth: authClient}
	if cfg.SkipFirestore {
		return clients, nil
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: firestore client: %w", err)
	}
	clients.Firestore = fs
	return clients, nil
}

// Close releases the Firestore connection if one was opened.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
