package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType represents the origin of an entity. System entities are seeded
// by the catalog and cannot be renamed or deleted.
type ProviderType string

const (
	ProviderSystem ProviderType = "system"
	ProviderUser   ProviderType = "user"
)

// TierClassification is the name of the system classification holding tier tags
const TierClassification = "Tier"

// Classification is a named grouping of tags
type Classification struct {
	ID                 uuid.UUID    `json:"id"`
	Name               string       `json:"name"`
	FullyQualifiedName string       `json:"fullyQualifiedName,omitempty"`
	DisplayName        string       `json:"displayName,omitempty"`
	Description        string       `json:"description"`
	Provider           ProviderType `json:"provider,omitempty"`
	Disabled           bool         `json:"disabled"`
	TermCount          *int         `json:"termCount,omitempty"`
	UsageCount         *int         `json:"usageCount,omitempty"`
	Version            float64      `json:"version,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
	UpdatedBy          string       `json:"updatedBy,omitempty"`
	Href               string       `json:"href,omitempty"`
}

// EntityName returns the display name when set, otherwise the name
func (c *Classification) EntityName() string {
	if c == nil {
		return ""
	}
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// IsSystem reports whether the classification was seeded by the catalog
func (c *Classification) IsSystem() bool {
	return c != nil && c.Provider == ProviderSystem
}

// Clone returns a deep copy, safe to mutate independently
func (c *Classification) Clone() *Classification {
	if c == nil {
		return nil
	}
	out := *c
	if c.TermCount != nil {
		n := *c.TermCount
		out.TermCount = &n
	}
	if c.UsageCount != nil {
		n := *c.UsageCount
		out.UsageCount = &n
	}
	return &out
}

// CreateClassification is the payload for creating a classification
type CreateClassification struct {
	Name        string       `json:"name" validate:"required,entity_name"`
	DisplayName string       `json:"displayName,omitempty" validate:"max=256"`
	Description string       `json:"description" validate:"max=65536"`
	Provider    ProviderType `json:"provider,omitempty" validate:"omitempty,provider_type"`
}

// EntityReference is a lightweight pointer to another entity
type EntityReference struct {
	ID                 uuid.UUID `json:"id"`
	Type               string    `json:"type"`
	Name               string    `json:"name"`
	FullyQualifiedName string    `json:"fullyQualifiedName,omitempty"`
	DisplayName        string    `json:"displayName,omitempty"`
}
