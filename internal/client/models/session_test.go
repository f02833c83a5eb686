package models

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriojati/storymap/internal/common"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSession_Valid(t *testing.T) {
	origNow := nowFunc
	t.Cleanup(func() { nowFunc = origNow })
	nowFunc = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }

	t.Run("empty token", func(t *testing.T) {
		var s *Session
		assert.ErrorIs(t, s.Valid(), common.ErrUnauthorized)
		assert.ErrorIs(t, (&Session{}).Valid(), common.ErrUnauthorized)
	})

	t.Run("opaque token assumed valid", func(t *testing.T) {
		assert.NoError(t, (&Session{Token: "not-a-jwt"}).Valid())
	})

	t.Run("unexpired jwt", func(t *testing.T) {
		s := &Session{Token: signedToken(t, nowFunc().Add(time.Hour))}
		assert.NoError(t, s.Valid())
	})

	t.Run("expired jwt", func(t *testing.T) {
		s := &Session{Token: signedToken(t, nowFunc().Add(-time.Hour))}
		err := s.Valid()
		assert.ErrorIs(t, err, common.ErrUnauthorized)
		assert.ErrorIs(t, err, common.ErrTokenExpired)
	})
}
