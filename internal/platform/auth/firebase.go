package auth

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier verifies Firebase ID tokens and checks revocation.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier creates a verifier using the Firebase Admin auth client.
func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		switch {
		case fbauth.IsIDTokenExpired(err):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case fbauth.IsIDTokenRevoked(err):
			return nil, fmt.Errorf("%w: %w", ErrTokenRevoked, err)
		case fbauth.IsUserDisabled(err):
			return nil, fmt.Errorf("%w: %w", ErrUserDisabled, err)
		case fbauth.IsCertificateFetchFailed(err):
			return nil, fmt.Errorf("%w: %w", ErrCertificateFetch, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	id := &Identity{Subject: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}

var _ Verifier = (*FirebaseVerifier)(nil)
