package utils

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hobbyshelf/internal/identity"
)

const testSecret = "test-secret-key-with-enough-length-0123456789"

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", testSecret)
	os.Exit(m.Run())
}

func signTestToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(identity.FromInt64(42))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, userID.Equals(identity.FromInt64(42)))
}

func TestGenerateTokenRejectsInvalidUser(t *testing.T) {
	_, err := GenerateToken(identity.FromInt64(0))
	assert.Error(t, err)
}

func TestValidateTokenMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-token", "a.b.c"} {
		_, err := ValidateToken(raw)
		assert.ErrorIs(t, err, ErrTokenMalformed, "raw=%q", raw)
	}
}

func TestValidateTokenBadSignature(t *testing.T) {
	now := time.Now()
	token := signTestToken(t, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "hobbyshelf-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}, "another-secret-entirely-also-long-enough-xxxx")

	_, err := ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestValidateTokenExpired(t *testing.T) {
	now := time.Now()
	token := signTestToken(t, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "hobbyshelf-api",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}, testSecret)

	_, err := ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	now := time.Now()
	token := signTestToken(t, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "someone-else",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}, testSecret)

	_, err := ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestValidateTokenSubjectMismatch(t *testing.T) {
	now := time.Now()
	token := signTestToken(t, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "8",
			Issuer:    "hobbyshelf-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}, testSecret)

	_, err := ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
