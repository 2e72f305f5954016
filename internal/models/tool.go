package models

import (
	"time"

	"hobbyshelf/internal/identity"
)

// MaxToolImages caps the image list on a tool across stored and newly
// uploaded files.
const MaxToolImages = 5

// Tool conditions accepted by create/update.
const (
	ConditionNew         = "new"
	ConditionGood        = "good"
	ConditionFair        = "fair"
	ConditionUsed        = "used"
	ConditionNeedsRepair = "needs-repair"

	DefaultToolCondition = ConditionGood
)

var toolConditions = map[string]struct{}{
	ConditionNew:         {},
	ConditionGood:        {},
	ConditionFair:        {},
	ConditionUsed:        {},
	ConditionNeedsRepair: {},
}

// ValidToolCondition reports whether value is one of the accepted
// condition tokens.
func ValidToolCondition(value string) bool {
	_, ok := toolConditions[value]
	return ok
}

type Tool struct {
	ID           int             `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Brand        string          `json:"brand" db:"brand"`
	Model        string          `json:"model" db:"model"`
	PurchaseDate *time.Time      `json:"purchase_date,omitempty" db:"purchase_date"`
	Price        *float64        `json:"price,omitempty" db:"price"`
	Condition    string          `json:"condition" db:"condition"`
	Images       []string        `json:"images" db:"images"`
	HobbyID      int             `json:"hobby_id" db:"hobby_id"`
	OwnerID      identity.UserID `json:"owner_id" db:"owner_id"`
	IsPublic     bool            `json:"is_public" db:"is_public"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`

	// Populated on single-tool reads.
	Hobby *HobbySummary  `json:"hobby,omitempty"`
	Owner *PublicProfile `json:"owner,omitempty"`
}

// HobbySummary is the parent hobby shape embedded in tool responses.
type HobbySummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsPublic bool   `json:"is_public"`
}
