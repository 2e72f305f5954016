package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/identity"
	"hobbyshelf/internal/utils"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", testSecret)
	os.Exit(m.Run())
}

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
		db.Close()
	})
	return mock
}

func authRouter() *gin.Engine {
	router := gin.New()
	router.GET("/protected", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserIDFromContext(c).Int64()})
	})
	return router
}

func performGet(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	recorder := performGet(authRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "authentication required")
}

func TestAuthMiddlewareBadHeaderFormat(t *testing.T) {
	router := authRouter()

	for _, header := range []string{"sometoken", "Basic abc", "Bearer"} {
		recorder := performGet(router, header)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, "header=%q", header)
		assert.Contains(t, recorder.Body.String(), "Bearer")
	}
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	recorder := performGet(authRouter(), "Bearer not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid token")
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	now := time.Now()
	claims := utils.Claims{
		UserID: 5,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			Issuer:    "hobbyshelf-api",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	recorder := performGet(authRouter(), "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Token has expired")
}

func TestAuthMiddlewareDeletedUser(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	token, err := utils.GenerateToken(identity.FromInt64(5))
	require.NoError(t, err)

	recorder := performGet(authRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "User not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	token, err := utils.GenerateToken(identity.FromInt64(5))
	require.NoError(t, err)

	recorder := performGet(authRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"user_id":5`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserIDFromContextWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, UserIDFromContext(c).Valid())
}
