package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultDisplayName = "Valued Client"

	// GoogleCertsURL serves the JWK set Google signs ID tokens with.
	GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type IdentityProvider interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// GoogleTokenProvider verifies a Google Sign-In ID token: RS256 signature against
// Google's keys, audience, issuer and expiry.
type GoogleTokenProvider struct {
	clientID string
	keys     jwt.Keyfunc
	now      func() time.Time
}

// NewGoogleTokenProvider needs the OAuth client id tokens are issued for and a key
// lookup, normally keyfunc over GoogleCertsURL.
func NewGoogleTokenProvider(clientID string, keys jwt.Keyfunc) (*GoogleTokenProvider, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("google sign-in: client id is required")
	}
	if keys == nil {
		return nil, errors.New("google sign-in: signing keys are required")
	}
	return &GoogleTokenProvider{clientID: clientID, keys: keys, now: time.Now}, nil
}

func (g *GoogleTokenProvider) Authenticate(_ context.Context, credential string) (Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(strings.TrimSpace(credential), claims, g.keys); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	iss, _ := claims.GetIssuer()
	if !slices.Contains(googleIssuers, iss) {
		return Identity{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidCredential, iss)
	}

	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return Identity{}, fmt.Errorf("%w: token has no email", ErrInvalidCredential)
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return Identity{}, fmt.Errorf("%w: email not verified", ErrInvalidCredential)
	}

	return Identity{Email: email, DisplayName: displayName(claims)}, nil
}

// DisabledIdentity rejects every credential. It stands in when Google sign-in is off.
type DisabledIdentity struct{}

func (DisabledIdentity) Authenticate(context.Context, string) (Identity, error) {
	return Identity{}, fmt.Errorf("%w: customer sign-in is disabled", ErrInvalidCredential)
}

func displayName(claims jwt.MapClaims) string {
	for _, key := range []string{"name", "given_name"} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return defaultDisplayName
}
