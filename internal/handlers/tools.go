package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/identity"
	"hobbyshelf/internal/media"
	"hobbyshelf/internal/models"
	"hobbyshelf/internal/monitoring"
)

const toolImagesFormKey = "images"

// toolFormFields carries the multipart fields of a tool create/update.
// Pointers encode presence: a nil field was not part of the request.
type toolFormFields struct {
	Name         *string
	Description  *string
	Brand        *string
	Model        *string
	PurchaseDate *time.Time
	Price        *float64
	Condition    *string
	IsPublic     *bool
}

func parseToolFormFields(c *gin.Context) (toolFormFields, gin.H) {
	var fields toolFormFields
	fieldErrors := gin.H{}

	if raw, ok := c.GetPostForm("name"); ok {
		name := strings.TrimSpace(raw)
		if name == "" {
			fieldErrors["name"] = "name cannot be empty"
		}
		fields.Name = &name
	}
	if raw, ok := c.GetPostForm("description"); ok {
		description := strings.TrimSpace(raw)
		fields.Description = &description
	}
	if raw, ok := c.GetPostForm("brand"); ok {
		brand := strings.TrimSpace(raw)
		fields.Brand = &brand
	}
	if raw, ok := c.GetPostForm("model"); ok {
		model := strings.TrimSpace(raw)
		fields.Model = &model
	}
	if raw, ok := c.GetPostForm("purchase_date"); ok && strings.TrimSpace(raw) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
		if err != nil {
			fieldErrors["purchase_date"] = "purchase_date must be formatted YYYY-MM-DD"
		} else {
			fields.PurchaseDate = &parsed
		}
	}
	if raw, ok := c.GetPostForm("price"); ok && strings.TrimSpace(raw) != "" {
		price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			fieldErrors["price"] = "price must be numeric"
		} else if price < 0 {
			fieldErrors["price"] = "price cannot be negative"
		} else {
			fields.Price = &price
		}
	}
	if raw, ok := c.GetPostForm("condition"); ok && strings.TrimSpace(raw) != "" {
		condition := strings.TrimSpace(raw)
		if !models.ValidToolCondition(condition) {
			fieldErrors["condition"] = "condition must be one of: new, good, fair, used, needs-repair"
		} else {
			fields.Condition = &condition
		}
	}
	if raw, ok := c.GetPostForm("is_public"); ok && strings.TrimSpace(raw) != "" {
		isPublic, err := parseBoolField(raw)
		if err != nil {
			fieldErrors["is_public"] = "is_public must be a boolean"
		} else {
			fields.IsPublic = &isPublic
		}
	}

	return fields, fieldErrors
}

// respondMediaError maps attachment validation failures onto the HTTP
// taxonomy.
func respondMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrEmptyFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Error handling uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing uploaded file"})
	}
}

// storeToolImages validates every file before storing any, then stores
// them all. On a storage failure the already-written files are removed
// so no partial image set survives.
func storeToolImages(files []*multipart.FileHeader) ([]string, error, bool) {
	for _, header := range files {
		if err := media.Validate(header, media.KindToolImage); err != nil {
			return nil, err, true
		}
	}

	stored := make([]string, 0, len(files))
	var storedBytes int64
	for _, header := range files {
		path, err := media.Store(header, media.KindToolImage)
		if err != nil {
			media.RemoveAll(stored)
			monitoring.RecordUpload(storedBytes, false)
			return nil, err, false
		}
		stored = append(stored, path)
		storedBytes += header.Size
	}

	if len(stored) > 0 {
		monitoring.RecordUpload(storedBytes, true)
	}
	return stored, nil, false
}

// CreateTool creates a tool under a hobby the requester owns, storing
// up to five attached images.
func CreateTool(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	fields, fieldErrors := parseToolFormFields(c)
	if fields.Name == nil {
		fieldErrors["name"] = "name is required"
	}
	if fields.Description == nil || *fields.Description == "" {
		fieldErrors["description"] = "description is required"
	}

	hobbyIDRaw, hasHobby := c.GetPostForm("hobby_id")
	hobbyID := 0
	if !hasHobby {
		fieldErrors["hobby_id"] = "hobby_id is required"
	} else if hobbyID, err = strconv.Atoi(strings.TrimSpace(hobbyIDRaw)); err != nil || hobbyID <= 0 {
		fieldErrors["hobby_id"] = "hobby_id must be a positive integer"
	}

	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors})
		return
	}

	files := form.File[toolImagesFormKey]
	if len(files) > models.MaxToolImages {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Too many images: a tool can have at most 5",
			"max_images": models.MaxToolImages,
		})
		return
	}

	// The target hobby must exist and belong to the requester before
	// anything is written.
	hobbyOwnerID, err := hobbyOwner(hobbyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Hobby not found"})
			return
		}
		log.Printf("Error checking hobby owner: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking hobby"})
		return
	}
	if !hobbyOwnerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to add tools to this hobby"})
		return
	}

	images, storeErr, isValidation := storeToolImages(files)
	if storeErr != nil {
		if isValidation {
			respondMediaError(c, storeErr)
		} else {
			log.Printf("Error storing tool images: %v", storeErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing images"})
		}
		return
	}

	condition := models.DefaultToolCondition
	if fields.Condition != nil {
		condition = *fields.Condition
	}
	isPublic := true
	if fields.IsPublic != nil {
		isPublic = *fields.IsPublic
	}
	brand, model := "", ""
	if fields.Brand != nil {
		brand = *fields.Brand
	}
	if fields.Model != nil {
		model = *fields.Model
	}

	db := database.DB
	var tool models.Tool
	insertQuery := `
		INSERT INTO tools (name, description, brand, model, purchase_date, price, condition, images, hobby_id, owner_id, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err = db.QueryRow(
		insertQuery,
		*fields.Name,
		*fields.Description,
		brand,
		model,
		fields.PurchaseDate,
		fields.Price,
		condition,
		pq.Array(images),
		hobbyID,
		userID,
		isPublic,
	).Scan(&tool.ID, &tool.CreatedAt)
	if err != nil {
		log.Printf("Error inserting tool: %v", err)
		// The row never existed, so the stored files must not survive.
		media.RemoveAll(images)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating tool"})
		return
	}

	tool.Name = *fields.Name
	tool.Description = *fields.Description
	tool.Brand = brand
	tool.Model = model
	tool.PurchaseDate = fields.PurchaseDate
	tool.Price = fields.Price
	tool.Condition = condition
	tool.Images = images
	tool.HobbyID = hobbyID
	tool.OwnerID = userID
	tool.IsPublic = isPublic

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tool created successfully",
		"tool":    tool,
	})
}

// GetMyTools returns every tool owned by the requester regardless of
// visibility.
func GetMyTools(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	tools, err := listTools(`WHERE t.owner_id = $1`, userID)
	if err != nil {
		log.Printf("Error retrieving tools for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving tools"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tools": tools,
		"count": len(tools),
	})
}

// GetToolsByHobby lists the tools of one hobby. Non-owners only reach
// public hobbies, and within them only public tools.
func GetToolsByHobby(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	hobbyID, ok := parseIDParam(c, "hobbyId", "hobby ID")
	if !ok {
		return
	}

	db := database.DB
	var hobbyOwnerID identity.UserID
	var hobbyIsPublic bool
	err := db.QueryRow(`SELECT owner_id, is_public FROM hobbies WHERE id = $1`, hobbyID).
		Scan(&hobbyOwnerID, &hobbyIsPublic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Hobby not found"})
			return
		}
		log.Printf("Error retrieving hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving hobby"})
		return
	}

	isOwner := hobbyOwnerID.Equals(userID)
	if !hobbyIsPublic && !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to view this hobby's tools"})
		return
	}

	var tools []models.Tool
	if isOwner {
		tools, err = listTools(`WHERE t.hobby_id = $1`, hobbyID)
	} else {
		tools, err = listTools(`WHERE t.hobby_id = $1 AND t.is_public = TRUE`, hobbyID)
	}
	if err != nil {
		log.Printf("Error retrieving tools for hobby %d: %v", hobbyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving tools"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tools": tools,
		"count": len(tools),
	})
}

// GetTool returns a single tool. Non-owners only see it when both the
// tool and its parent hobby are public.
func GetTool(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	toolID, ok := parseIDParam(c, "id", "tool ID")
	if !ok {
		return
	}

	db := database.DB
	var tool models.Tool
	var hobby models.HobbySummary
	var owner models.PublicProfile
	var purchaseDate sql.NullTime
	var price sql.NullFloat64
	var images pq.StringArray

	query := `
		SELECT t.id, t.name, t.description, t.brand, t.model, t.purchase_date, t.price, t.condition,
		       t.images, t.hobby_id, t.owner_id, t.is_public, t.created_at,
		       h.name, h.category, h.is_public,
		       u.username, u.profile_picture
		FROM tools t
		JOIN hobbies h ON h.id = t.hobby_id
		JOIN users u ON u.id = t.owner_id
		WHERE t.id = $1
	`
	err := db.QueryRow(query, toolID).Scan(
		&tool.ID,
		&tool.Name,
		&tool.Description,
		&tool.Brand,
		&tool.Model,
		&purchaseDate,
		&price,
		&tool.Condition,
		&images,
		&tool.HobbyID,
		&tool.OwnerID,
		&tool.IsPublic,
		&tool.CreatedAt,
		&hobby.Name,
		&hobby.Category,
		&hobby.IsPublic,
		&owner.Username,
		&owner.ProfilePicture,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
			return
		}
		log.Printf("Error retrieving tool %d: %v", toolID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving tool"})
		return
	}

	// Read access requires both public flags unless the requester owns
	// the tool.
	if (!tool.IsPublic || !hobby.IsPublic) && !tool.OwnerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to view this tool"})
		return
	}

	if purchaseDate.Valid {
		tool.PurchaseDate = &purchaseDate.Time
	}
	if price.Valid {
		tool.Price = &price.Float64
	}
	tool.Images = images
	hobby.ID = tool.HobbyID
	tool.Hobby = &hobby
	owner.ID = tool.OwnerID
	tool.Owner = &owner

	c.JSON(http.StatusOK, gin.H{"tool": tool})
}

// UpdateTool applies a partial multipart update. The client sends the
// retained subset of existing images as a JSON array in
// "existing_images"; new files are appended and the combined list is
// capped at five before anything is stored.
func UpdateTool(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	toolID, ok := parseIDParam(c, "id", "tool ID")
	if !ok {
		return
	}

	db := database.DB
	var tool models.Tool
	var currentImages pq.StringArray
	err := db.QueryRow(`SELECT owner_id, images FROM tools WHERE id = $1`, toolID).
		Scan(&tool.OwnerID, &currentImages)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
			return
		}
		log.Printf("Error checking tool owner: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking tool"})
		return
	}
	if !tool.OwnerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to update this tool"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	fields, fieldErrors := parseToolFormFields(c)

	retained := []string(currentImages)
	if raw, present := c.GetPostForm("existing_images"); present {
		var requested []string
		if err := json.Unmarshal([]byte(raw), &requested); err != nil {
			fieldErrors["existing_images"] = "existing_images must be a JSON array of image paths"
		} else {
			current := make(map[string]struct{}, len(currentImages))
			for _, path := range currentImages {
				current[path] = struct{}{}
			}
			for _, path := range requested {
				if _, known := current[path]; !known {
					fieldErrors["existing_images"] = "existing_images contains a path that is not on this tool"
					break
				}
			}
			if _, bad := fieldErrors["existing_images"]; !bad {
				retained = requested
			}
		}
	}

	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors})
		return
	}

	files := form.File[toolImagesFormKey]
	if len(retained)+len(files) > models.MaxToolImages {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Too many images: a tool can have at most 5",
			"max_images": models.MaxToolImages,
		})
		return
	}

	newImages, storeErr, isValidation := storeToolImages(files)
	if storeErr != nil {
		if isValidation {
			respondMediaError(c, storeErr)
		} else {
			log.Printf("Error storing tool images: %v", storeErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing images"})
		}
		return
	}

	finalImages := append(append([]string{}, retained...), newImages...)

	var purchaseDate sql.NullTime
	var price sql.NullFloat64
	var images pq.StringArray
	updateQuery := `
		UPDATE tools
		SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			brand = COALESCE($3, brand),
			model = COALESCE($4, model),
			purchase_date = COALESCE($5, purchase_date),
			price = COALESCE($6, price),
			condition = COALESCE($7, condition),
			is_public = COALESCE($8, is_public),
			images = $9
		WHERE id = $10
		RETURNING id, name, description, brand, model, purchase_date, price, condition, images, hobby_id, owner_id, is_public, created_at
	`
	err = db.QueryRow(
		updateQuery,
		fields.Name,
		fields.Description,
		fields.Brand,
		fields.Model,
		fields.PurchaseDate,
		fields.Price,
		fields.Condition,
		fields.IsPublic,
		pq.Array(finalImages),
		toolID,
	).Scan(
		&tool.ID,
		&tool.Name,
		&tool.Description,
		&tool.Brand,
		&tool.Model,
		&purchaseDate,
		&price,
		&tool.Condition,
		&images,
		&tool.HobbyID,
		&tool.OwnerID,
		&tool.IsPublic,
		&tool.CreatedAt,
	)
	if err != nil {
		log.Printf("Error updating tool %d: %v", toolID, err)
		media.RemoveAll(newImages)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating tool"})
		return
	}

	if purchaseDate.Valid {
		tool.PurchaseDate = &purchaseDate.Time
	}
	if price.Valid {
		tool.Price = &price.Float64
	}
	tool.Images = images

	// Only after the row is committed do the dropped originals go away.
	retainedSet := make(map[string]struct{}, len(retained))
	for _, path := range retained {
		retainedSet[path] = struct{}{}
	}
	var dropped []string
	for _, path := range currentImages {
		if _, kept := retainedSet[path]; !kept {
			dropped = append(dropped, path)
		}
	}
	media.RemoveAll(dropped)

	c.JSON(http.StatusOK, gin.H{
		"message": "Tool updated successfully",
		"tool":    tool,
	})
}

// DeleteTool removes a tool and its stored image files.
func DeleteTool(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	toolID, ok := parseIDParam(c, "id", "tool ID")
	if !ok {
		return
	}

	db := database.DB
	var tool models.Tool
	var images pq.StringArray
	err := db.QueryRow(`SELECT owner_id, images FROM tools WHERE id = $1`, toolID).
		Scan(&tool.OwnerID, &images)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tool not found"})
			return
		}
		log.Printf("Error checking tool owner: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking tool"})
		return
	}
	if !tool.OwnerID.Equals(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to delete this tool"})
		return
	}

	if _, err := db.Exec(`DELETE FROM tools WHERE id = $1`, toolID); err != nil {
		log.Printf("Error deleting tool %d: %v", toolID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting tool"})
		return
	}

	media.RemoveAll(images)

	c.JSON(http.StatusOK, gin.H{
		"message": "Tool deleted successfully",
	})
}

func listTools(whereClause string, args ...any) ([]models.Tool, error) {
	query := `
		SELECT t.id, t.name, t.description, t.brand, t.model, t.purchase_date, t.price, t.condition,
		       t.images, t.hobby_id, t.owner_id, t.is_public, t.created_at,
		       h.name, h.category, h.is_public
		FROM tools t
		JOIN hobbies h ON h.id = t.hobby_id
		` + whereClause + `
		ORDER BY t.created_at DESC, t.id DESC
	`

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tools := make([]models.Tool, 0)
	for rows.Next() {
		var tool models.Tool
		var hobby models.HobbySummary
		var purchaseDate sql.NullTime
		var price sql.NullFloat64
		var images pq.StringArray

		err := rows.Scan(
			&tool.ID,
			&tool.Name,
			&tool.Description,
			&tool.Brand,
			&tool.Model,
			&purchaseDate,
			&price,
			&tool.Condition,
			&images,
			&tool.HobbyID,
			&tool.OwnerID,
			&tool.IsPublic,
			&tool.CreatedAt,
			&hobby.Name,
			&hobby.Category,
			&hobby.IsPublic,
		)
		if err != nil {
			return nil, err
		}

		if purchaseDate.Valid {
			tool.PurchaseDate = &purchaseDate.Time
		}
		if price.Valid {
			tool.Price = &price.Float64
		}
		tool.Images = images
		hobby.ID = tool.HobbyID
		tool.Hobby = &hobby

		tools = append(tools, tool)
	}

	return tools, rows.Err()
}
