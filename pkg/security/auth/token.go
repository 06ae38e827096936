package auth

import (
	"crypto/subtle"
	"errors"
)

// ErrInvalidToken is returned when a presented token does not match.
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator checks presented tokens against the shared secret.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator creates a validator for secret.
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate returns nil if token equals the shared secret. An empty secret
// rejects every token.
func (v *TokenValidator) Validate(token string) error {
	if len(v.secret) == 0 || token == "" {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(token), v.secret) != 1 {
		return ErrInvalidToken
	}
	return nil
}
