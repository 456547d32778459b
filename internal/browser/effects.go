package browser

import (
	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// Resource names a piece of view state that reads are versioned against
type Resource int

const (
	// ResourceNone marks mutations; their results are never discarded
	ResourceNone Resource = iota
	ResourceClassifications
	ResourceClassification
	ResourceTags
	ResourcePermissions
	resourceCount
)

// Ticket identifies an issued request. A read result is applied only when its
// generation is the latest issued for its resource.
type Ticket struct {
	Resource   Resource
	Generation uint64
}

// Effect is a side effect requested by a command
type Effect interface {
	effect()
}

// FetchEffect asks the shell to perform one catalog call
type FetchEffect struct {
	Ticket
	Call Call
}

// NavigateEffect asks the shell to change the addressable path. An empty path
// means there is nothing left to show.
type NavigateEffect struct {
	Path string
}

// NotifyEffect asks the shell to show a message to the user
type NotifyEffect struct {
	Kind    ErrorKind
	Message string
}

func (FetchEffect) effect()    {}
func (NavigateEffect) effect() {}
func (NotifyEffect) effect()   {}

// Call is one catalog service request
type Call interface {
	call()
}

type ListClassificationsCall struct {
	Fields     models.Fields
	Limit      int
	SetCurrent bool
}

type GetClassificationCall struct {
	Name   string
	Fields models.Fields
}

type ListTagsCall struct {
	Filter catalog.TagFilter
}

type GetPermissionsCall struct {
	ID uuid.UUID
}

type CreateClassificationCall struct {
	Payload models.CreateClassification
}

// PatchIntent says which user action produced a patch
type PatchIntent int

const (
	IntentRename PatchIntent = iota + 1
	IntentDescription
	IntentToggleDisabled
	IntentEditTag
)

type PatchClassificationCall struct {
	ID        uuid.UUID
	PriorName string
	Patch     jsonpatch.Patch
	Intent    PatchIntent
}

type DeleteClassificationCall struct {
	ID uuid.UUID
}

type CreateTagCall struct {
	Payload models.CreateTag
}

type PatchTagCall struct {
	ID     uuid.UUID
	Patch  jsonpatch.Patch
	Intent PatchIntent
}

type DeleteTagCall struct {
	ID uuid.UUID
}

func (ListClassificationsCall) call()  {}
func (GetClassificationCall) call()    {}
func (ListTagsCall) call()             {}
func (GetPermissionsCall) call()       {}
func (CreateClassificationCall) call() {}
func (PatchClassificationCall) call()  {}
func (DeleteClassificationCall) call() {}
func (CreateTagCall) call()            {}
func (PatchTagCall) call()             {}
func (DeleteTagCall) call()            {}

// Result is the settled outcome of a FetchEffect, fed back through State.Apply
type Result interface {
	outcome() Outcome
}

// Outcome is the part every result shares
type Outcome struct {
	Ticket
	Err error
}

func (o Outcome) outcome() Outcome { return o }

type ClassificationsResult struct {
	Outcome
	Call ListClassificationsCall
	List *models.ClassificationList
}

type ClassificationResult struct {
	Outcome
	Call           GetClassificationCall
	Classification *models.Classification
}

type TagsResult struct {
	Outcome
	Call ListTagsCall
	Page *models.TagList
}

type PermissionsResult struct {
	Outcome
	Call       GetPermissionsCall
	Permission *models.OperationPermission
}

type ClassificationCreated struct {
	Outcome
	Call           CreateClassificationCall
	Classification *models.Classification
}

type ClassificationPatched struct {
	Outcome
	Call           PatchClassificationCall
	Classification *models.Classification
}

type ClassificationDeleted struct {
	Outcome
	Call DeleteClassificationCall
}

type TagCreated struct {
	Outcome
	Call CreateTagCall
	Tag  *models.Tag
}

type TagPatched struct {
	Outcome
	Call PatchTagCall
	Tag  *models.Tag
}

type TagDeleted struct {
	Outcome
	Call DeleteTagCall
}
