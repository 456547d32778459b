// Package browser is the classification browser: an explicit view state with
// pure commands that return the next state plus the side effects to perform,
// and a Runner that performs them against a catalog.Service.
package browser

import (
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

const (
	// DefaultPageSize is the number of tags shown per page
	DefaultPageSize = 10
	// ClassificationListLimit caps the side list
	ClassificationListLimit = 1000
)

// LoadStatus is the lifecycle of the selected classification
type LoadStatus int

const (
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusErrored
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return "idle"
	}
}

// DeleteStatus is the confirmation state of a pending deletion. The record is
// dropped once the delete call settles, so there is no terminal status.
type DeleteStatus int

const (
	DeleteRequested DeleteStatus = iota
	DeleteWaiting
)

// DeleteTarget is the entity a deletion was requested for
type DeleteTarget struct {
	ID                 uuid.UUID
	Name               string
	ClassificationName string
	IsClassification   bool
}

// PendingDeletion exists between a delete request and its confirmation or cancellation
type PendingDeletion struct {
	Target DeleteTarget
	Status DeleteStatus
}

// Options configure a new State
type Options struct {
	PageSize    int
	Messages    Messages
	Permissions []models.ResourcePermission
}

// State is the complete view state of the browser. Commands never mutate a
// State in place: slices and entities reachable from one are treated as immutable.
type State struct {
	Classifications []*models.Classification
	Current         *models.Classification
	// Permission is the caller's permission on the current classification
	Permission models.OperationPermission

	Tags        []*models.Tag
	Paging      models.Paging
	CurrentPage int

	Status LoadStatus
	Error  string

	Renaming             bool
	EditingDescription   bool
	AddingClassification bool
	TagModal             bool
	EditTag              *models.Tag
	Pending              *PendingDeletion

	pageSize int
	messages Messages
	global   map[models.ResourceEntity]models.OperationPermission
	issued   [resourceCount]uint64
	settled  [resourceCount]uint64
}

// New returns an idle browser state
func New(opts Options) State {
	s := State{
		CurrentPage: 1,
		pageSize:    opts.PageSize,
		messages:    opts.Messages,
		global:      make(map[models.ResourceEntity]models.OperationPermission, len(opts.Permissions)),
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.messages == nil {
		s.messages = English
	}
	for _, p := range opts.Permissions {
		s.global[p.Resource] = p.Permission
	}
	return s
}

// PageSize is the tag page size
func (s State) PageSize() int {
	if s.pageSize <= 0 {
		return DefaultPageSize
	}
	return s.pageSize
}

// Messages is the message catalog notifications are rendered from
func (s State) Messages() Messages {
	if s.messages == nil {
		return English
	}
	return s.messages
}

// IsStale reports whether res answers a read that a later request superseded
func (s State) IsStale(res Result) bool {
	t := res.outcome().Ticket
	return t.Resource != ResourceNone && t.Generation != s.issued[t.Resource]
}

func (s State) inFlight(r Resource) bool {
	return s.settled[r] < s.issued[r]
}

// TagsLoading reports whether a tag page request is outstanding
func (s State) TagsLoading() bool {
	return s.inFlight(ResourceTags)
}

// finishLoad moves the selection out of Loading once no classification read
// is outstanding. A non-empty failure marks it Errored; only entering Loading
// again clears the error.
func (s State) finishLoad(failure string) State {
	switch {
	case failure != "":
		s.Status = StatusErrored
		s.Error = failure
	case s.Status == StatusErrored:
	case s.inFlight(ResourceClassifications) || s.inFlight(ResourceClassification):
		s.Status = StatusLoading
	default:
		s.Status = StatusLoaded
	}
	return s
}

// HasPagination reports whether the tag list spans more than one page
func (s State) HasPagination() bool {
	return s.Paging.Total > s.PageSize()
}

func (s State) can(resource models.ResourceEntity, op models.Operation) bool {
	return s.global[resource].Allows(op)
}

// CanCreateClassification reports whether the caller may add classifications
func (s State) CanCreateClassification() bool {
	return s.can(models.ResourceClassification, models.OperationCreate)
}

// CanEditClassification reports whether the caller may rename or toggle classifications
func (s State) CanEditClassification() bool {
	return s.can(models.ResourceClassification, models.OperationEditAll)
}

// CanEditTags reports whether the caller may edit or toggle tags
func (s State) CanEditTags() bool {
	return s.can(models.ResourceTag, models.OperationEditAll)
}

// CanCreateTag reports whether the caller may add a tag to the current classification
func (s State) CanCreateTag() bool {
	return s.can(models.ResourceTag, models.OperationCreate) || s.Permission.EditAll
}

// CanDeleteClassification reports whether the current classification may be deleted
func (s State) CanDeleteClassification() bool {
	return s.Current != nil && !s.Current.IsSystem() && s.Permission.Delete
}

// CanDeleteTag reports whether tag may be deleted
func (s State) CanDeleteTag(tag *models.Tag) bool {
	return tag != nil && !tag.IsSystem() && s.CanEditTags()
}

// DisableTagTitle is the label of the enable/disable action for tag
func (s State) DisableTagTitle(tag *models.Tag) string {
	m := s.Messages()
	switch {
	case !s.CanEditTags():
		return m.Text(MsgNoPermission)
	case tag != nil && tag.Disabled:
		return m.Text(LabelEnable)
	default:
		return m.Text(LabelDisable)
	}
}

// find returns the index of the listed classification named name, or -1
func (s State) find(name string) int {
	for i, c := range s.Classifications {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// findTag returns the tag on the current page with id, or nil
func (s State) findTag(id uuid.UUID) *models.Tag {
	for _, t := range s.Tags {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s State) issue(r Resource, call Call) (State, FetchEffect) {
	s.issued[r]++
	return s, FetchEffect{Ticket: Ticket{Resource: r, Generation: s.issued[r]}, Call: call}
}

func notify(kind ErrorKind, message string) Effect {
	return NotifyEffect{Kind: kind, Message: message}
}
