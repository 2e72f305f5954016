package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/identity"
	"hobbyshelf/internal/media"
	"hobbyshelf/internal/models"
	"hobbyshelf/internal/monitoring"
	"hobbyshelf/internal/utils"
)

// GetUser returns a user's profile by id.
func GetUser(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	rawID, ok := parseIDParam(c, "id", "user ID")
	if !ok {
		return
	}

	user, err := loadUserByID(identity.FromInt64(int64(rawID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Error retrieving user %d: %v", rawID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// UpdateUser updates the requester's profile fields and optionally
// replaces the profile picture. The previous picture is unlinked only
// after the row update succeeds.
func UpdateUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var username, email, bio *string
	fieldErrors := gin.H{}

	if raw, present := c.GetPostForm("username"); present {
		value := strings.TrimSpace(raw)
		if len(value) < 3 {
			fieldErrors["username"] = "username must be at least 3 characters"
		}
		username = &value
	}
	if raw, present := c.GetPostForm("email"); present {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" || !strings.Contains(value, "@") {
			fieldErrors["email"] = "a valid email is required"
		}
		email = &value
	}
	if raw, present := c.GetPostForm("bio"); present {
		value := strings.TrimSpace(raw)
		bio = &value
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors})
		return
	}

	var newPicture *string
	pictureHeader, err := c.FormFile("profile_picture")
	if err == nil && pictureHeader != nil {
		if err := media.Validate(pictureHeader, media.KindProfilePicture); err != nil {
			respondMediaError(c, err)
			return
		}
		storedPath, err := media.Store(pictureHeader, media.KindProfilePicture)
		if err != nil {
			log.Printf("Error storing profile picture: %v", err)
			monitoring.RecordUpload(pictureHeader.Size, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing profile picture"})
			return
		}
		monitoring.RecordUpload(pictureHeader.Size, true)
		newPicture = &storedPath
	}

	db := database.DB

	var previousPicture string
	if err := db.QueryRow(`SELECT profile_picture FROM users WHERE id = $1`, userID).Scan(&previousPicture); err != nil {
		if newPicture != nil {
			media.RemoveAll([]string{*newPicture})
		}
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Error loading user %s before update: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
		return
	}

	var user models.User
	updateQuery := `
		UPDATE users
		SET
			username = COALESCE($1, username),
			email = COALESCE($2, email),
			bio = COALESCE($3, bio),
			profile_picture = COALESCE($4, profile_picture)
		WHERE id = $5
		RETURNING id, username, email, profile_picture, bio, created_at
	`
	err = db.QueryRow(updateQuery, username, email, bio, newPicture, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.ProfilePicture,
		&user.Bio,
		&user.CreatedAt,
	)
	if err != nil {
		if newPicture != nil {
			media.RemoveAll([]string{*newPicture})
		}
		if isUniqueViolation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email or username already exists"})
			return
		}
		log.Printf("Error updating user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
		return
	}

	if newPicture != nil && previousPicture != models.DefaultProfilePicture && previousPicture != *newPicture {
		media.RemoveAll([]string{previousPicture})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    userResponse(user),
	})
}

// UpdatePassword changes the requester's password after verifying the
// current one.
func UpdatePassword(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current and new passwords are required"})
		return
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": gin.H{"newPassword": err.Error()}})
		return
	}

	db := database.DB
	var currentHash string
	err := db.QueryRow(`SELECT password FROM users WHERE id = $1`, userID).Scan(&currentHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Error loading password hash for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating password"})
		return
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, currentHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	if _, err := db.Exec(`UPDATE users SET password = $1 WHERE id = $2`, newHash, userID); err != nil {
		log.Printf("Error updating password for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// GetUserHobbies lists a user's hobbies. The profile owner sees all of
// them; everyone else only the public ones.
func GetUserHobbies(c *gin.Context) {
	requesterID, ok := requireUserID(c)
	if !ok {
		return
	}

	rawID, ok := parseIDParam(c, "id", "user ID")
	if !ok {
		return
	}
	profileID := identity.FromInt64(int64(rawID))

	db := database.DB
	var existingID identity.UserID
	if err := db.QueryRow(`SELECT id FROM users WHERE id = $1`, profileID).Scan(&existingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Error checking user %s: %v", profileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving hobbies"})
		return
	}

	var hobbies []models.Hobby
	var err error
	if profileID.Equals(requesterID) {
		hobbies, err = listHobbies(`WHERE h.owner_id = $1`, profileID)
	} else {
		hobbies, err = listHobbies(`WHERE h.owner_id = $1 AND h.is_public = TRUE`, profileID)
	}
	if err != nil {
		log.Printf("Error retrieving hobbies for user %s: %v", profileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving hobbies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hobbies": hobbies,
		"count":   len(hobbies),
	})
}
