package session

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const adminDisplayName = "Administrator"

// AdminAuthenticator checks the configured admin email and bcrypt password hash.
type AdminAuthenticator struct {
	email string
	hash  []byte
}

func NewAdminAuthenticator(email, passwordHash string) *AdminAuthenticator {
	return &AdminAuthenticator{
		email: strings.ToLower(strings.TrimSpace(email)),
		hash:  []byte(strings.TrimSpace(passwordHash)),
	}
}

func (a *AdminAuthenticator) Enabled() bool {
	return a != nil && a.email != "" && len(a.hash) > 0
}

func (a *AdminAuthenticator) Authenticate(email, password string) (Identity, error) {
	if !a.Enabled() {
		return Identity{}, ErrAdminDisabled
	}

	given := strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(given), []byte(a.email)) == 1
	// bcrypt runs even when the email does not match
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))

	if !emailOK || passErr != nil {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{Email: a.email, DisplayName: adminDisplayName}, nil
}
