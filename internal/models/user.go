package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names understood by the permission oracle
const (
	RoleAdmin        = "Admin"
	RoleDataSteward  = "DataSteward"
	RoleDataConsumer = "DataConsumer"
)

// User represents a user in the system
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasRole reports whether the user holds role
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Handle returns the name used in updatedBy/createdBy fields
func (u *User) Handle() string {
	if u == nil {
		return ""
	}
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
