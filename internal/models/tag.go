package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a labeled term belonging to exactly one classification
type Tag struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	FullyQualifiedName string           `json:"fullyQualifiedName,omitempty"`
	DisplayName        string           `json:"displayName,omitempty"`
	Description        string           `json:"description"`
	Classification     *EntityReference `json:"classification,omitempty"`
	Provider           ProviderType     `json:"provider,omitempty"`
	Disabled           bool             `json:"disabled"`
	UsageCount         *int             `json:"usageCount,omitempty"`
	Version            float64          `json:"version,omitempty"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	UpdatedBy          string           `json:"updatedBy,omitempty"`
	Href               string           `json:"href,omitempty"`
}

// ClassificationName returns the name of the parent classification, or "" when unknown
func (t *Tag) ClassificationName() string {
	if t == nil || t.Classification == nil {
		return ""
	}
	return t.Classification.Name
}

// IsSystem reports whether the tag was seeded by the catalog
func (t *Tag) IsSystem() bool {
	return t != nil && t.Provider == ProviderSystem
}

// Clone returns a deep copy, safe to mutate independently
func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	out := *t
	if t.Classification != nil {
		ref := *t.Classification
		out.Classification = &ref
	}
	if t.UsageCount != nil {
		n := *t.UsageCount
		out.UsageCount = &n
	}
	return &out
}

// CreateTag is the payload for creating a tag under a classification
type CreateTag struct {
	Name           string       `json:"name" validate:"required,entity_name"`
	DisplayName    string       `json:"displayName,omitempty" validate:"max=256"`
	Description    string       `json:"description" validate:"max=65536"`
	Classification string       `json:"classification" validate:"required"`
	Provider       ProviderType `json:"provider,omitempty" validate:"omitempty,provider_type"`
}

// TagFQN builds the fully qualified name of a tag
func TagFQN(classification, name string) string {
	return classification + "." + name
}
