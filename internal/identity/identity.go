// Package identity provides the canonical user-identity value used for
// every ownership comparison. Owner references can arrive as JWT subject
// strings, form values, or integers scanned from the database; all of
// them are funneled through UserID before any equality check.
package identity

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UserID is the canonical representation of a user identity.
// The zero value is invalid.
type UserID int64

var ErrInvalidUserID = errors.New("invalid user id")

// Parse converts a string form (JWT subject, URL parameter) into a UserID.
func Parse(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrInvalidUserID
	}
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrInvalidUserID
	}
	return UserID(value), nil
}

// FromInt64 converts a database integer into a UserID.
func FromInt64(value int64) UserID {
	return UserID(value)
}

func (id UserID) Valid() bool {
	return id > 0
}

// Equals reports whether two identities refer to the same user.
// Invalid identities never match anything, including each other.
func (id UserID) Equals(other UserID) bool {
	return id.Valid() && id == other
}

func (id UserID) Int64() int64 {
	return int64(id)
}

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Scan implements sql.Scanner so owner columns land directly in the
// canonical type.
func (id *UserID) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*id = UserID(v)
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("identity: cannot scan %T into UserID", src)
	}
}

// Value implements driver.Valuer.
func (id UserID) Value() (driver.Value, error) {
	if !id.Valid() {
		return nil, ErrInvalidUserID
	}
	return int64(id), nil
}
