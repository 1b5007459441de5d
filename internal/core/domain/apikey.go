package domain

import (
	"time"

	"github.com/google/uuid"
)

// Resource identifies an API surface an API key can be granted access to.
type Resource string

const (
	ResourcePayments     Resource = "payments"
	ResourceTransactions Resource = "transactions"
	ResourceWebhooks     Resource = "webhooks"
	ResourceProfile      Resource = "profile"
)

// Action identifies an operation on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Permission grants a set of actions on one resource.
type Permission struct {
	Resource Resource `json:"resource"`
	Actions  []Action `json:"actions"`
}

// APIKey is a bearer credential for programmatic access. The plaintext
// secret is shown once at creation; only its hash and a short lookup
// prefix are persisted.
type APIKey struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Name        string       `json:"name"`
	KeyHash     string       `json:"-"` // Never expose
	Prefix      string       `json:"prefix"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"is_active"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsExpired reports whether the key has an expiry in the past. An expired
// key is invalid regardless of its active flag.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// HasPermission reports whether the key grants the given action on the
// given resource.
func (k *APIKey) HasPermission(resource Resource, action Action) bool {
	for _, p := range k.Permissions {
		if p.Resource != resource {
			continue
		}
		for _, a := range p.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}
