package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hobbyshelf/internal/identity"
	"hobbyshelf/internal/middleware"
)

// requireUserID pulls the authenticated identity out of the request
// context. The auth middleware guarantees it is present on guarded
// routes; a missing identity here means a wiring mistake, answered 401.
func requireUserID(c *gin.Context) (identity.UserID, bool) {
	userID := middleware.UserIDFromContext(c)
	if !userID.Valid() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func parseIDParam(c *gin.Context, name string, label string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil || value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label})
		return 0, false
	}
	return value, true
}

// parseBoolField coerces an external truthy/falsy form value into a
// strict boolean.
func parseBoolField(raw string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(raw))
}
