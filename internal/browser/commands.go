package browser

import (
	"strings"

	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// Cursor selects an adjacent tag page. At most one field is set.
type Cursor struct {
	Before string
	After  string
}

// CursorDirection names the paging link to follow
type CursorDirection string

const (
	CursorBefore CursorDirection = "before"
	CursorAfter  CursorDirection = "after"
)

// Open starts the browser at the classification named in the addressable path.
// With no name the first listed classification is selected.
func (s State) Open(name string) (State, []Effect) {
	var effs []Effect
	if name != "" {
		s, effs = s.FetchCurrentClassification(RouteName(name), false)
	}
	s, list := s.ListClassifications(name == "")
	return s, append(effs, list...)
}

// ListClassifications reloads the side list. With setCurrent the first
// classification is selected once the list arrives.
func (s State) ListClassifications(setCurrent bool) (State, []Effect) {
	s.Status = StatusLoading
	s.Error = ""
	s, f := s.issue(ResourceClassifications, ListClassificationsCall{
		Fields:     models.NewFields(models.FieldTermCount, models.FieldDisabled),
		Limit:      ClassificationListLimit,
		SetCurrent: setCurrent,
	})
	return s, []Effect{f}
}

// SelectClassification makes the listed classification called name current
func (s State) SelectClassification(name string) (State, []Effect) {
	nav := NavigateEffect{Path: ClassificationPath(name)}
	i := s.find(name)
	if i < 0 {
		s, effs := s.FetchCurrentClassification(name, true)
		return s, append([]Effect{nav}, effs...)
	}
	s, effs := s.selectClassification(s.Classifications[i].Clone())
	return s, append([]Effect{nav}, effs...)
}

// selectClassification sets c current and loads its first tag page and permissions
func (s State) selectClassification(c *models.Classification) (State, []Effect) {
	if s.Current == nil || s.Current.ID != c.ID {
		s.Permission = models.OperationPermission{}
	}
	s.Current = c
	s, effs := s.ListTags(c.Name, nil)
	if c.ID != uuid.Nil {
		var f FetchEffect
		s, f = s.issue(ResourcePermissions, GetPermissionsCall{ID: c.ID})
		effs = append(effs, f)
	}
	return s, effs
}

// ListTags loads one page of the children of classification name. Without a
// cursor the view returns to the first page.
func (s State) ListTags(name string, cursor *Cursor) (State, []Effect) {
	filter := catalog.TagFilter{
		Parent: name,
		Limit:  s.PageSize(),
		Fields: models.NewFields(models.FieldUsageCount, models.FieldDisabled),
	}
	if cursor != nil {
		filter.Before = cursor.Before
		filter.After = cursor.After
	} else {
		s.CurrentPage = 1
	}
	s, f := s.issue(ResourceTags, ListTagsCall{Filter: filter})
	return s, []Effect{f}
}

// FetchCurrentClassification loads classification name as the current one.
// Unless forced it does nothing when name is already current.
func (s State) FetchCurrentClassification(name string, force bool) (State, []Effect) {
	if !force && s.Current != nil && s.Current.Name == name {
		return s, nil
	}
	s.Status = StatusLoading
	s.Error = ""
	s, f := s.issue(ResourceClassification, GetClassificationCall{
		Name:   name,
		Fields: models.NewFields(models.FieldUsageCount, models.FieldTermCount),
	})
	return s, []Effect{f}
}

// ChangePage follows the paging link in direction and shows page as the page number
func (s State) ChangePage(direction CursorDirection, page int) (State, []Effect) {
	if s.Current == nil {
		return s, nil
	}
	var cur Cursor
	switch direction {
	case CursorBefore:
		cur.Before = s.Paging.Before
	case CursorAfter:
		cur.After = s.Paging.After
	}
	if cur == (Cursor{}) {
		return s, nil
	}
	s.CurrentPage = page
	return s.ListTags(s.Current.Name, &cur)
}

// CreateClassification submits a new classification with its name trimmed
func (s State) CreateClassification(input models.CreateClassification) (State, []Effect) {
	input.Name = strings.TrimSpace(input.Name)
	return s, []Effect{FetchEffect{Call: CreateClassificationCall{Payload: input}}}
}

// RenameClassification renames the current classification. A blank name keeps the current one.
func (s State) RenameClassification(newName string) (State, []Effect) {
	if s.Current == nil {
		return s, nil
	}
	proposed := s.Current.Clone()
	if name := strings.TrimSpace(newName); name != "" {
		proposed.Name = name
	}
	return s.patchClassification(proposed, IntentRename)
}

// UpdateDescription replaces the description of the current classification
func (s State) UpdateDescription(markdown string) (State, []Effect) {
	if s.Current == nil {
		return s, nil
	}
	proposed := s.Current.Clone()
	proposed.Description = markdown
	return s.patchClassification(proposed, IntentDescription)
}

// ToggleClassificationDisabled flips the disabled flag of the current classification
func (s State) ToggleClassificationDisabled() (State, []Effect) {
	if s.Current == nil || s.Current.ID == uuid.Nil {
		return s, nil
	}
	proposed := s.Current.Clone()
	proposed.Disabled = !proposed.Disabled
	return s.patchClassification(proposed, IntentToggleDisabled)
}

// patchClassification submits the difference between the current classification
// and proposed. An empty difference needs no request and counts as saved.
func (s State) patchClassification(proposed *models.Classification, intent PatchIntent) (State, []Effect) {
	patch := jsonpatch.Diff(s.Current, proposed)
	if len(patch) == 0 {
		switch intent {
		case IntentRename:
			s.Renaming = false
		case IntentDescription:
			s.EditingDescription = false
		}
		return s, nil
	}
	return s, []Effect{FetchEffect{Call: PatchClassificationCall{
		ID:        s.Current.ID,
		PriorName: s.Current.Name,
		Patch:     patch,
		Intent:    intent,
	}}}
}

// ToggleTagDisabled flips the disabled flag of tag
func (s State) ToggleTagDisabled(tag *models.Tag) (State, []Effect) {
	if tag == nil || tag.ID == uuid.Nil || s.Current == nil {
		return s, nil
	}
	proposed := tag.Clone()
	proposed.Disabled = !tag.Disabled
	return s, []Effect{FetchEffect{Call: PatchTagCall{
		ID:     tag.ID,
		Patch:  jsonpatch.Diff(tag, proposed),
		Intent: IntentToggleDisabled,
	}}}
}

// CreateTag adds a tag to the current classification
func (s State) CreateTag(input models.CreateTag) (State, []Effect) {
	if s.Current == nil {
		return s, nil
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Classification = s.Current.Name
	return s, []Effect{FetchEffect{Call: CreateTagCall{Payload: input}}}
}

// UpdateTag submits the difference between the tag being edited and proposed
func (s State) UpdateTag(proposed *models.Tag) (State, []Effect) {
	if proposed == nil {
		return s, nil
	}
	prior := s.EditTag
	if prior == nil || prior.ID != proposed.ID {
		prior = s.findTag(proposed.ID)
	}
	if prior == nil {
		return s, nil
	}
	patch := jsonpatch.Diff(prior, proposed)
	if len(patch) == 0 {
		return s.CloseTagModal()
	}
	return s, []Effect{FetchEffect{Call: PatchTagCall{ID: prior.ID, Patch: patch, Intent: IntentEditTag}}}
}

// ClassificationTarget is the delete target for c
func ClassificationTarget(c *models.Classification) DeleteTarget {
	return DeleteTarget{ID: c.ID, Name: c.Name, ClassificationName: c.Name, IsClassification: true}
}

// TagTarget is the delete target for t
func TagTarget(t *models.Tag) DeleteTarget {
	return DeleteTarget{ID: t.ID, Name: t.Name, ClassificationName: t.ClassificationName()}
}

// RequestDelete asks for confirmation before deleting target
func (s State) RequestDelete(target DeleteTarget) (State, []Effect) {
	s.Pending = &PendingDeletion{Target: target, Status: DeleteRequested}
	return s, nil
}

// CancelDelete drops the pending deletion
func (s State) CancelDelete() (State, []Effect) {
	s.Pending = nil
	return s, nil
}

// ConfirmDelete deletes the pending target
func (s State) ConfirmDelete() (State, []Effect) {
	if s.Pending == nil {
		return s, nil
	}
	pending := *s.Pending
	pending.Status = DeleteWaiting
	s.Pending = &pending
	if pending.Target.IsClassification {
		return s.DeleteClassification(pending.Target.ID)
	}
	return s.DeleteTag(pending.Target.ID)
}

// DeleteClassification removes a classification and its tags
func (s State) DeleteClassification(id uuid.UUID) (State, []Effect) {
	return s, []Effect{FetchEffect{Call: DeleteClassificationCall{ID: id}}}
}

// DeleteTag removes a tag
func (s State) DeleteTag(id uuid.UUID) (State, []Effect) {
	return s, []Effect{FetchEffect{Call: DeleteTagCall{ID: id}}}
}

// StartRename enters rename mode for the current classification
func (s State) StartRename() (State, []Effect) {
	s.Renaming = s.Current != nil
	return s, nil
}

// CancelRename leaves rename mode
func (s State) CancelRename() (State, []Effect) {
	s.Renaming = false
	return s, nil
}

// StartEditDescription opens the description editor
func (s State) StartEditDescription() (State, []Effect) {
	s.EditingDescription = s.Current != nil
	return s, nil
}

// CancelEditDescription closes the description editor
func (s State) CancelEditDescription() (State, []Effect) {
	s.EditingDescription = false
	return s, nil
}

// ToggleAddClassification opens or closes the new classification form
func (s State) ToggleAddClassification() (State, []Effect) {
	s.AddingClassification = !s.AddingClassification
	return s, nil
}

// OpenTagModal opens the tag form, editing tag or creating one when tag is nil
func (s State) OpenTagModal(tag *models.Tag) (State, []Effect) {
	s.TagModal = true
	s.EditTag = tag.Clone()
	return s, nil
}

// CloseTagModal closes the tag form and the new classification form
func (s State) CloseTagModal() (State, []Effect) {
	s.TagModal = false
	s.EditTag = nil
	s.AddingClassification = false
	return s, nil
}
