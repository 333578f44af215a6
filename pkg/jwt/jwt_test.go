package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	claims := UserClaims{
		UserID:      7,
		Username:    "rose",
		AvatarColor: "#ff0000",
		Email:       "rose@example.com",
		GardenID:    1,
	}

	token, err := GenerateToken(claims, "secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), parsed.UserID)
	assert.Equal(t, "rose", parsed.Username)
	assert.Equal(t, "#ff0000", parsed.AvatarColor)
	assert.Equal(t, uint(1), parsed.GardenID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(UserClaims{UserID: 7}, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(UserClaims{UserID: 7}, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestServiceRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Hour)

	token, err := svc.GenerateToken(UserClaims{UserID: 7, Username: "rose"})
	require.NoError(t, err)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), parsed.UserID)
}
