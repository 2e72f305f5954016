package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/identity"
	"hobbyshelf/internal/media"
	"hobbyshelf/internal/models"
)

// CreateHobby creates a new hobby owned by the requester.
func CreateHobby(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name        string  `json:"name"`
		Category    string  `json:"category"`
		Description *string `json:"description"`
		IsPublic    *bool   `json:"is_public"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)

	fieldErrors := gin.H{}
	if name == "" {
		fieldErrors["name"] = "name is required"
	}
	if category == "" {
		fieldErrors["category"] = "category is required"
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors})
		return
	}

	description := ""
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	db := database.DB
	var hobby models.Hobby
	insertQuery := `
		INSERT INTO hobbies (name, category, description, is_public, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, category, description, is_public, owner_id, created_at
	`
	err := db.QueryRow(insertQuery, name, category, description, isPublic, userID).Scan(
		&hobby.ID,
		&hobby.Name,
		&hobby.Category,
		&hobby.Description,
		&hobby.IsPublic,
		&hobby.OwnerID,
		&hobby.CreatedAt,
	)
	if err != nil {
		log.Printf("Error creating hobby: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating hobby"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Hobby created successfully",
		"hobby":   hobby,
	})
}

// GetMyHobbies returns every hobby owned by the requester regardless of
// visibility.
func GetMyHobbies(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	hobbies, err := listHobbies(`WHERE h.owner_id = $1`, userID)
	if err != nil {
		log.Printf("Error retrieving hobbies for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving hobbies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hobbies": hobbies,
		"count":   len(hobbies),
	})
}

// GetPublicHobbies returns every public hobby from any owner.
func GetPublicHobbies(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	hobbies, err := listHobbies(`WHERE h.is_public = TRUE`)
	if err != nil {
		log.Printf("Error retrieving public hobbies: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving hobbies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hobbies": hobbies,
		"count":   len(hobbies),
	})
}

func listHobbies(whereClause string, args ...any) ([]models.Hobby, error) {
	query := `
		SELECT h.id, h.name, h.category, h.description, h.is_public, h.owner_id, h.created_at,
		       u.username, u.profile_picture
		FROM hobbies h
		JOIN users u ON u.id = h.owner_id
		` + whereClause + `
		ORDER BY h.created_at DESC, h.id DESC
	`

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hobbies := make([]models.Hobby, 0)
	for rows.Next() {
		var hobby models.Hobby
		var owner models.PublicProfile
		err := rows.Scan(
			&hobby.ID,
			&hobby.Name,
			&hobby.Category,
			&hobby.Description,
			&hobby.IsPublic,
			&hobby.OwnerID,
			&hobby.CreatedAt,
			&owner.Username,
			&owner.ProfilePicture,
		)
		if err != nil {
			return nil, err
		}
		owner.ID = hobby.OwnerID
		hobby.Owner = &owner
		hobbies = append(hobbies, hobby)
	}

	return hobbies, rows.Err()
}

// GetHobby returns a single hobby. Owners see their own records
// regardless of visibility; everyone else only sees public ones.
func GetHobby(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	hobbyID, ok := parseIDParam(c, "id", "hobby ID")
	if !ok {
		return
	}

	db := database.DB
	var hobby models.Hobby
	var owner models.PublicProfile
	query := `
		SELECT h.id, h.name, h.category, h.description, h.is_public, h.owner_id, h.created_at,
		       u.username, u.profile_picture
		FROM hobbies h
		JOIN users u ON u.id = h.owner_id
		WHERE h.id = $1
	`
	err := db.QueryRow(query, hobbyID).Scan(
		&hobby.ID,
		&hobby.Name,
		&hobby.Category,
		&hobby.Description,
		&hobby.IsPublic,
		&hobby.OwnerID,
		&hobby.CreatedAt,
		&owner.Username,
		&owner.ProfilePicture,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Hobby not found"})
			return
		}
		log.Printf("Error retrieving hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving hobby"})
		return
	}

	if !hobby.IsPublic && !hobby.OwnerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to view this hobby"})
		return
	}

	owner.ID = hobby.OwnerID
	hobby.Owner = &owner

	c.JSON(http.StatusOK, gin.H{"hobby": hobby})
}

// hobbyOwner loads the owner of a hobby, distinguishing a missing
// record (sql.ErrNoRows) from other failures. Existence is always
// checked before ownership so callers can answer 404 before 403.
func hobbyOwner(hobbyID int) (identity.UserID, error) {
	var ownerID identity.UserID
	err := database.DB.QueryRow(`SELECT owner_id FROM hobbies WHERE id = $1`, hobbyID).Scan(&ownerID)
	return ownerID, err
}

// UpdateHobby applies a partial update. Only fields present in the
// request change; ownership is immutable.
func UpdateHobby(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	hobbyID, ok := parseIDParam(c, "id", "hobby ID")
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Category    *string `json:"category"`
		Description *string `json:"description"`
		IsPublic    *bool   `json:"is_public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": gin.H{"name": "name cannot be empty"}})
		return
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": gin.H{"category": "category cannot be empty"}})
		return
	}

	ownerID, err := hobbyOwner(hobbyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Hobby not found"})
			return
		}
		log.Printf("Error checking hobby owner: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking hobby"})
		return
	}
	if !ownerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to update this hobby"})
		return
	}

	db := database.DB
	var hobby models.Hobby
	updateQuery := `
		UPDATE hobbies
		SET
			name = COALESCE($1, name),
			category = COALESCE($2, category),
			description = COALESCE($3, description),
			is_public = COALESCE($4, is_public)
		WHERE id = $5
		RETURNING id, name, category, description, is_public, owner_id, created_at
	`
	err = db.QueryRow(updateQuery, req.Name, req.Category, req.Description, req.IsPublic, hobbyID).Scan(
		&hobby.ID,
		&hobby.Name,
		&hobby.Category,
		&hobby.Description,
		&hobby.IsPublic,
		&hobby.OwnerID,
		&hobby.CreatedAt,
	)
	if err != nil {
		log.Printf("Error updating hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating hobby"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Hobby updated successfully",
		"hobby":   hobby,
	})
}

// DeleteHobby removes a hobby and cascades to its tools. Tools are
// deleted before the hobby inside one transaction; their image files
// are unlinked only after commit.
func DeleteHobby(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	hobbyID, ok := parseIDParam(c, "id", "hobby ID")
	if !ok {
		return
	}

	ownerID, err := hobbyOwner(hobbyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Hobby not found"})
			return
		}
		log.Printf("Error checking hobby owner: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking hobby"})
		return
	}
	if !ownerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to delete this hobby"})
		return
	}

	db := database.DB
	tx, err := db.Begin()
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction error"})
		return
	}
	defer tx.Rollback()

	imagePaths, err := collectToolImagePaths(tx, hobbyID)
	if err != nil {
		log.Printf("Error collecting tool images for hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting hobby"})
		return
	}

	var deletedTools int64
	result, err := tx.Exec(`DELETE FROM tools WHERE hobby_id = $1`, hobbyID)
	if err != nil {
		log.Printf("Error deleting tools for hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting hobby"})
		return
	}
	deletedTools, _ = result.RowsAffected()

	if _, err := tx.Exec(`DELETE FROM hobbies WHERE id = $1`, hobbyID); err != nil {
		log.Printf("Error deleting hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting hobby"})
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Error committing hobby delete transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit error"})
		return
	}

	media.RemoveAll(imagePaths)

	c.JSON(http.StatusOK, gin.H{
		"message":       "Hobby and associated tools deleted successfully",
		"deleted_tools": deletedTools,
	})
}

func collectToolImagePaths(tx *sql.Tx, hobbyID int) ([]string, error) {
	rows, err := tx.Query(`SELECT images FROM tools WHERE hobby_id = $1`, hobbyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var images pq.StringArray
		if err := rows.Scan(&images); err != nil {
			return nil, err
		}
		paths = append(paths, images...)
	}

	return paths, rows.Err()
}
