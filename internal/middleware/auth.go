package middleware

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/identity"
	"hobbyshelf/internal/utils"
)

const userIDContextKey = "user_id"

// UserIDFromContext returns the authenticated identity attached by
// AuthMiddleware, or an invalid UserID when the request is
// unauthenticated.
func UserIDFromContext(c *gin.Context) identity.UserID {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return 0
	}
	userID, ok := value.(identity.UserID)
	if !ok {
		return 0
	}
	return userID
}

// SetUserID attaches an identity to the request context. Exposed for
// handler tests.
func SetUserID(c *gin.Context, userID identity.UserID) {
	c.Set(userIDContextKey, userID)
}

// AuthMiddleware resolves the Authorization header to a live user
// record and rejects the request before it reaches handlers otherwise.
// Failures are terminal per-request; there is no refresh or rotation.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must be in the format 'Bearer {token}'",
			})
			c.Abort()
			return
		}

		userID, err := utils.ValidateToken(tokenParts[1])
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, utils.ErrTokenExpired) {
				message = "Token has expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}

		// A valid token may outlive its account; confirm the user
		// still exists before letting the request through.
		var existingID identity.UserID
		err = database.DB.QueryRow(`SELECT id FROM users WHERE id = $1`, userID).Scan(&existingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				c.Abort()
				return
			}
			log.Printf("Error resolving authenticated user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resolving user"})
			c.Abort()
			return
		}

		SetUserID(c, existingID)
		c.Next()
	}
}
