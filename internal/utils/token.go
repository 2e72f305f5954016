package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hobbyshelf/internal/identity"
)

const (
	jwtIssuer         = "hobbyshelf-api"
	minJWTSecretBytes = 32
	defaultTokenTTL   = 7 * 24 * time.Hour
)

// Typed verification failures. Callers distinguish these to report why
// a request is unauthenticated; expiry is the only invalidation
// mechanism, there is no revocation list.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenSignature = errors.New("token signature is invalid")
	ErrTokenExpired   = errors.New("token has expired")
)

type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

var (
	jwtSecret     []byte
	jwtSecretErr  error
	jwtSecretOnce sync.Once
)

func EnsureJWTReady() error {
	_, err := getJWTSecret()
	return err
}

func getJWTSecret() ([]byte, error) {
	jwtSecretOnce.Do(func() {
		raw := strings.TrimSpace(os.Getenv("JWT_SECRET"))
		if raw == "" {
			jwtSecretErr = errors.New("JWT_SECRET is required")
			return
		}
		if len(raw) < minJWTSecretBytes {
			jwtSecretErr = fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretBytes)
			return
		}
		jwtSecret = []byte(raw)
	})

	if jwtSecretErr != nil {
		return nil, jwtSecretErr
	}
	return jwtSecret, nil
}

func tokenTTL() time.Duration {
	raw := strings.TrimSpace(os.Getenv("HOBBYSHELF_TOKEN_TTL_HOURS"))
	if raw == "" {
		return defaultTokenTTL
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return defaultTokenTTL
	}
	return time.Duration(hours) * time.Hour
}

// GenerateToken generates a new JWT token for a user.
func GenerateToken(userID identity.UserID) (string, error) {
	if !userID.Valid() {
		return "", errors.New("invalid user ID")
	}

	secret, err := getJWTSecret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		UserID: userID.Int64(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates the JWT token and returns the embedded user
// identity, or one of the typed failures above.
func ValidateToken(tokenString string) (identity.UserID, error) {
	if strings.TrimSpace(tokenString) == "" {
		return 0, ErrTokenMalformed
	}

	secret, err := getJWTSecret()
	if err != nil {
		return 0, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return 0, ErrTokenSignature
		default:
			return 0, ErrTokenMalformed
		}
	}

	if !token.Valid {
		return 0, ErrTokenSignature
	}

	userID := identity.FromInt64(claims.UserID)
	if !userID.Valid() {
		return 0, ErrTokenMalformed
	}

	if claims.Issuer != jwtIssuer {
		return 0, ErrTokenMalformed
	}

	if claims.Subject != userID.String() {
		return 0, ErrTokenMalformed
	}

	return userID, nil
}
