// Package permission decides which operations a user may perform on catalog resources.
package permission

import (
	"context"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// Subject is the resource a permission question is about. A zero ID asks about
// the resource type as a whole.
type Subject struct {
	Resource models.ResourceEntity
	ID       uuid.UUID
}

// Oracle yields the operation permission set a user holds on a subject
type Oracle interface {
	Evaluate(ctx context.Context, user *models.User, subject Subject) (models.OperationPermission, error)
}

// RoleOracle grants permissions from the user's catalog roles
type RoleOracle struct{}

// Evaluate implements Oracle
func (RoleOracle) Evaluate(_ context.Context, user *models.User, subject Subject) (models.OperationPermission, error) {
	var roles []string
	if user != nil {
		roles = user.Roles
	}
	return ForRoles(roles, subject.Resource), nil
}

var allowAll = models.OperationPermission{
	Create:          true,
	Delete:          true,
	ViewAll:         true,
	ViewBasic:       true,
	EditAll:         true,
	EditDescription: true,
	EditDisplayName: true,
	EditTags:        true,
}

// ForRoles returns the union of the permissions each role grants on resource
func ForRoles(roles []string, resource models.ResourceEntity) models.OperationPermission {
	perm := models.OperationPermission{ViewBasic: true}
	for _, role := range roles {
		perm = union(perm, forRole(role, resource))
	}
	return perm
}

func forRole(role string, resource models.ResourceEntity) models.OperationPermission {
	switch role {
	case models.RoleAdmin:
		return allowAll
	case models.RoleDataSteward:
		p := allowAll
		if resource == models.ResourceClassification {
			p.Delete = false
		}
		return p
	case models.RoleDataConsumer:
		p := models.OperationPermission{ViewAll: true, ViewBasic: true}
		switch resource {
		case models.ResourceTag:
			p.EditTags = true
		case models.ResourceFeed:
			p.Create = true
		}
		return p
	default:
		return models.OperationPermission{}
	}
}

func union(a, b models.OperationPermission) models.OperationPermission {
	return models.OperationPermission{
		Create:          a.Create || b.Create,
		Delete:          a.Delete || b.Delete,
		ViewAll:         a.ViewAll || b.ViewAll,
		ViewBasic:       a.ViewBasic || b.ViewBasic,
		EditAll:         a.EditAll || b.EditAll,
		EditDescription: a.EditDescription || b.EditDescription,
		EditDisplayName: a.EditDisplayName || b.EditDisplayName,
		EditTags:        a.EditTags || b.EditTags,
	}
}
