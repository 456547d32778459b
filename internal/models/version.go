package models

import (
	"encoding/json"
	"time"
)

// FieldChange describes one field touched by a change
type FieldChange struct {
	Name     string `json:"name"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// ChangeDescription summarises the difference between two versions of an entity
type ChangeDescription struct {
	FieldsAdded     []FieldChange `json:"fieldsAdded"`
	FieldsUpdated   []FieldChange `json:"fieldsUpdated"`
	FieldsDeleted   []FieldChange `json:"fieldsDeleted"`
	PreviousVersion float64       `json:"previousVersion"`
}

// EntityVersion is one recorded version of an entity
type EntityVersion struct {
	Version           float64           `json:"version"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	UpdatedBy         string            `json:"updatedBy"`
	ChangeDescription ChangeDescription `json:"changeDescription"`
	Snapshot          json.RawMessage   `json:"snapshot"`
}

// EntityHistory is the version list of one entity, newest first
type EntityHistory struct {
	EntityType string          `json:"entityType"`
	Versions   []EntityVersion `json:"versions"`
}

// InitialVersion is the version assigned at creation
const InitialVersion = 0.1
