package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("s", MinSecretLength)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "ops", claims.Subject)
}

func TestValidateTokenRejects(t *testing.T) {
	token, err := GenerateToken(testSecret, "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(strings.Repeat("x", MinSecretLength), token)
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateToken(testSecret, "ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(testSecret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(testSecret, unsigned)
	assert.Error(t, err)
}

func TestSecretRequirements(t *testing.T) {
	_, err := GenerateToken("", "ops", RoleAdmin, time.Hour)
	assert.Error(t, err)

	_, err = GenerateToken("short", "ops", RoleAdmin, time.Hour)
	assert.Error(t, err)

	_, err = ValidateToken("", "anything")
	assert.Error(t, err)
}
