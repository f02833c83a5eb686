package models

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/satriojati/storymap/internal/common"
)

// nowFunc is a test seam for time.Now.
var nowFunc = time.Now

// User is the identity part of a session.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the ephemeral credential state: a bearer token plus the user it
// belongs to. It is created on login, read on every authenticated request and
// destroyed on logout.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Valid reports whether the session carries a token that has not expired.
// The token is decoded without signature verification: the client has no
// server key, it only wants to avoid sending requests that are guaranteed to
// be rejected. Tokens that do not parse as JWT are treated as opaque and
// assumed valid; the backend remains the authority.
func (s *Session) Valid() error {
	if s == nil || s.Token == "" {
		return common.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.Token, claims); err != nil {
		return nil // opaque token
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil // no exp claim
	}
	if exp.Before(nowFunc()) {
		return errors.Join(common.ErrUnauthorized, common.ErrTokenExpired)
	}
	return nil
}
