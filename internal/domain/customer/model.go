package customer

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Status constants. Active and dormant are the two segments a recipient
// selector can target; prospects are only reachable through "all".
const (
	StatusActive   = "active"
	StatusDormant  = "dormant"
	StatusProspect = "prospect"
)

// statusLabels maps the display labels used by the CRM screens to status values.
var statusLabels = map[string]string{
	"アクティブ": StatusActive,
	"休眠":    StatusDormant,
	"見込み客":  StatusProspect,
}

// Domain errors
var (
	ErrEmptyName     = errors.New("customer name cannot be empty")
	ErrNameTooLong   = errors.New("customer name cannot exceed 100 characters")
	ErrInvalidEmail  = errors.New("customer email must be valid")
	ErrInvalidStatus = errors.New("status must be 'active', 'dormant', or 'prospect'")
)

// Customer is a contact owned by the CRM screens. This service only reads it
// to resolve campaign recipients.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Company   string
	Status    string
	CreatedAt time.Time
}

// Validate checks if the Customer has valid data.
// PRE: Customer struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(c.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidStatus(c.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidStatus reports whether s is one of the known status values.
func IsValidStatus(s string) bool {
	return s == StatusActive || s == StatusDormant || s == StatusProspect
}

// NormalizeStatus maps a status value or display label to a status value.
// PRE: none
// POST: Returns the canonical status, or the trimmed input unchanged if unknown
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if v, ok := statusLabels[s]; ok {
		return v
	}
	return strings.ToLower(s)
}
