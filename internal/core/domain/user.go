package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered merchant account with its billing and
// display preferences.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Never expose
	BusinessName  string    `json:"business_name"`
	CompanyNumber *string   `json:"company_number,omitempty"`
	Currency      string    `json:"currency"`
	Language      string    `json:"language"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
