package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mrzgate/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

const subject = "kiosk-17"

func requireUnauthorized(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	de, ok := dErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dErrors.CodeUnauthorized, de.Code)
	assert.Equal(t, message, de.Message)
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(subject, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, ScopeScan, claims.Scope)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateAccessToken_RequiresSubject(t *testing.T) {
	_, err := jwtService.GenerateAccessToken("", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	requireUnauthorized(t, err, "invalid token")
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(subject, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	requireUnauthorized(t, err, "token has expired")
}

func Test_ValidateToken_WrongKeyOrAudience(t *testing.T) {
	other := NewJWTService("other-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(subject, time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	requireUnauthorized(t, err, "invalid token")

	otherAudience := NewJWTService("test-signing-key", "test-issuer", "elsewhere")
	token, err = otherAudience.GenerateAccessToken(subject, time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	requireUnauthorized(t, err, "invalid token")
}

func Test_ValidateToken_MissingScope(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "test-issuer",
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	requireUnauthorized(t, err, "token lacks scan scope")
}

func Test_Adapter(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(subject, time.Hour)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.NotEmpty(t, claims.JTI)
}
