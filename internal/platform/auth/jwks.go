package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
)

// idpClaims are the claims read from an OpenID Connect access token.
type idpClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// JWKSVerifier verifies RS256/ES256 JWTs from an OpenID Connect provider such as Keycloak.
type JWKSVerifier struct {
	keyFunc  jwt.Keyfunc
	issuer   string
	audience string
	methods  []string
}

// NewJWKSVerifier creates a verifier that resolves signing keys with keyFunc.
// Empty issuer or audience disables that check.
func NewJWKSVerifier(keyFunc jwt.Keyfunc, issuer, audience string) *JWKSVerifier {
	return &JWKSVerifier{
		keyFunc:  keyFunc,
		issuer:   issuer,
		audience: audience,
		methods:  []string{"RS256", "RS384", "RS512", "ES256", "ES384", "PS256"},
	}
}

// FetchJWKS downloads the key set at jwksURL and keeps it refreshed in the background
// until ctx is done.
func FetchJWKS(ctx context.Context, jwksURL string) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			applog.LogWarn(ctx, "jwks refresh failed", slog.String("error", err.Error()))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCertificateFetch, err)
	}
	return jwks, nil
}

func (v *JWKSVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	claims := &idpClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods(v.methods))

	token, err := parser.ParseWithClaims(raw, claims, v.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}
	return &Identity{Subject: claims.Subject, Email: claims.Email, Name: name}, nil
}

var _ Verifier = (*JWKSVerifier)(nil)
