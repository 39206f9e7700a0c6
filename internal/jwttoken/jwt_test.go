package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "adresboek/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")
var sessionID = uuid.NewString()
var expiresIn = time.Hour

func Test_GenerateSessionToken(t *testing.T) {
	token, err := jwtService.GenerateSessionToken(sessionID, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateSessionToken(sessionID, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer")
	token, err := other.GenerateSessionToken(sessionID, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}
