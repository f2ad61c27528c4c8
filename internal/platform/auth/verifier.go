package auth

import (
	"context"
	"errors"
	"strings"
)

// Verification errors. Verifiers wrap the underlying library error with one of these.
var (
	ErrNoToken          = errors.New("no token provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrUserDisabled     = errors.New("user disabled")
	ErrCertificateFetch = errors.New("failed to fetch verification keys")
)

// Identity is the verified caller of a self-service request.
// Subject is the identity provider's stable user id and is the only
// source of the record id for self-service operations.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier validates a bearer token and returns the identity it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>" header value.
func ExtractBearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
