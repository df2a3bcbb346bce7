package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	signed, err := Issue(42, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := Parse(signed)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "subly", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	signed, err := Issue(42, "user")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET_KEY", "other-secret")
	_, err = Parse(signed)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	claims := &Claims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = Parse(signed)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	_, err := Parse("not-a-token")
	assert.Error(t, err)
}
