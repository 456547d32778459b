package permission

import (
	"errors"
	"fmt"

	"github.com/benvon/tag-catalog/internal/models"
)

// ErrForbidden is wrapped by every failed guard
var ErrForbidden = errors.New("forbidden")

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// TargetContext describes an existing entity a mutation would touch.
type TargetContext struct {
	Resource   models.ResourceEntity
	Name       string
	Provider   models.ProviderType
	Permission models.OperationPermission
}

// CanCreate evaluates whether a new entity of resource may be created.
func CanCreate(resource models.ResourceEntity, perm models.OperationPermission) GuardResult {
	if !perm.Allows(models.OperationCreate) {
		return deny("no permission to create %s", resource)
	}
	return allow()
}

// CanDelete evaluates whether an entity may be deleted.
// Rules:
// - system-provided entities are never deleted
// - the Delete operation must be granted
func CanDelete(ctx TargetContext) GuardResult {
	if ctx.Provider == models.ProviderSystem {
		return deny("%s %s is provided by the system and cannot be deleted", ctx.Resource, ctx.Name)
	}
	if !ctx.Permission.Allows(models.OperationDelete) {
		return deny("no permission to delete %s %s", ctx.Resource, ctx.Name)
	}
	return allow()
}

// fieldOperation maps a patched top-level field to the operation guarding it
var fieldOperation = map[string]models.Operation{
	"description": models.OperationEditDescription,
	"displayName": models.OperationEditDisplayName,
	"name":        models.OperationEditAll,
	"disabled":    models.OperationEditAll,
}

// WritableFields lists the top-level fields a patch may touch
func WritableFields() map[string]bool {
	out := make(map[string]bool, len(fieldOperation))
	for f := range fieldOperation {
		out[f] = true
	}
	return out
}

// CanPatch evaluates whether fields of an entity may be changed.
// Rules:
// - system-provided entities cannot be renamed
// - each field requires the operation that guards it
func CanPatch(ctx TargetContext, fields []string) GuardResult {
	for _, field := range fields {
		op, ok := fieldOperation[field]
		if !ok {
			return deny("field %s of %s %s is read-only", field, ctx.Resource, ctx.Name)
		}
		if field == "name" && ctx.Provider == models.ProviderSystem {
			return deny("%s %s is provided by the system and cannot be renamed", ctx.Resource, ctx.Name)
		}
		if !ctx.Permission.Allows(op) {
			return deny("no permission to edit %s of %s %s", field, ctx.Resource, ctx.Name)
		}
	}
	return allow()
}
