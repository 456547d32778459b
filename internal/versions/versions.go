// Package versions derives change descriptions recorded with every entity version.
package versions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
)

// ignored fields are maintained by the catalog and never reported as changes
var ignored = map[string]bool{
	"version":   true,
	"updatedAt": true,
	"updatedBy": true,
	"href":      true,
}

// Describe compares two snapshots of an entity and reports which top-level fields
// were added, updated or deleted. Snapshots that cannot be encoded yield an empty
// description.
func Describe(prior, updated any) models.ChangeDescription {
	change := models.ChangeDescription{
		FieldsAdded:   []models.FieldChange{},
		FieldsUpdated: []models.FieldChange{},
		FieldsDeleted: []models.FieldChange{},
	}
	before, errBefore := toMap(prior)
	after, errAfter := toMap(updated)
	if errBefore != nil || errAfter != nil {
		return change
	}

	seen := map[string]bool{}
	for _, op := range jsonpatch.Diff(before, after) {
		field := jsonpatch.TopLevelField(op.Path)
		if field == "" || ignored[field] || seen[field] {
			continue
		}
		seen[field] = true
		oldValue, hadOld := before[field]
		newValue, hasNew := after[field]
		fc := models.FieldChange{Name: field, OldValue: oldValue, NewValue: newValue}
		switch {
		case !hadOld && hasNew:
			fc.OldValue = nil
			change.FieldsAdded = append(change.FieldsAdded, fc)
		case hadOld && !hasNew:
			fc.NewValue = nil
			change.FieldsDeleted = append(change.FieldsDeleted, fc)
		default:
			change.FieldsUpdated = append(change.FieldsUpdated, fc)
		}
	}
	for _, list := range [][]models.FieldChange{change.FieldsAdded, change.FieldsUpdated, change.FieldsDeleted} {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return change
}

// IsEmpty reports whether a change description touches no field
func IsEmpty(c models.ChangeDescription) bool {
	return len(c.FieldsAdded) == 0 && len(c.FieldsUpdated) == 0 && len(c.FieldsDeleted) == 0
}

// Summary renders a change description as a single line, e.g.
// "updated description, displayName; added provider"
func Summary(c models.ChangeDescription) string {
	var parts []string
	add := func(verb string, fields []models.FieldChange) {
		if len(fields) == 0 {
			return
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		parts = append(parts, verb+" "+strings.Join(names, ", "))
	}
	add("added", c.FieldsAdded)
	add("updated", c.FieldsUpdated)
	add("deleted", c.FieldsDeleted)
	if len(parts) == 0 {
		return "created"
	}
	return strings.Join(parts, "; ")
}

// FormatVersion renders a version number the way the catalog displays it
func FormatVersion(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
