// Package token validates and issues the HMAC-signed JWTs used to
// authenticate WebSocket connections.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, mis-signed or expired tokens.
var ErrInvalidToken = errors.New("token: invalid or expired token")

// Config holds validator configuration.
type Config struct {
	SecretKey string
}

// Validator validates HMAC-signed tokens.
type Validator struct {
	secret []byte
}

// NewValidator creates a Validator.
func NewValidator(cfg Config) *Validator {
	return &Validator{secret: []byte(cfg.SecretKey)}
}

// Subject validates the token and returns its subject claim.
func (v *Validator) Subject(tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("token: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Sign issues a token for the given subject. Used by dev tooling and tests.
func (v *Validator) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
