package browser

import (
	"github.com/benvon/tag-catalog/internal/models"
)

// Apply folds a settled request into the state and returns the follow-up
// effects. Results of superseded reads are dropped unchanged.
func (s State) Apply(res Result) (State, []Effect) {
	if s.IsStale(res) {
		return s, nil
	}
	if t := res.outcome().Ticket; t.Resource != ResourceNone {
		s.settled[t.Resource] = t.Generation
	}

	switch r := res.(type) {
	case ClassificationsResult:
		return s.applyClassifications(r)
	case ClassificationResult:
		return s.applyClassification(r)
	case TagsResult:
		return s.applyTags(r)
	case PermissionsResult:
		return s.applyPermissions(r)
	case ClassificationCreated:
		return s.applyClassificationCreated(r)
	case ClassificationPatched:
		return s.applyClassificationPatched(r)
	case ClassificationDeleted:
		return s.applyClassificationDeleted(r)
	case TagCreated:
		return s.applyTagCreated(r)
	case TagPatched:
		return s.applyTagPatched(r)
	case TagDeleted:
		return s.applyTagDeleted(r)
	}
	return s, nil
}

func (s State) applyClassifications(r ClassificationsResult) (State, []Effect) {
	m := s.Messages()
	if r.Err != nil {
		msg := errorText(r.Err, m.Entity(MsgEntityFetchError, LabelClassification))
		s.Classifications = nil
		return s.finishLoad(msg), []Effect{notify(FetchFailed, msg)}
	}

	var list []*models.Classification
	if r.List != nil {
		list = r.List.Data
	}
	s.Classifications = list
	s = s.finishLoad("")
	if !r.Call.SetCurrent || len(list) == 0 {
		return s, nil
	}
	first := list[0]
	s, effs := s.selectClassification(first.Clone())
	return s, append([]Effect{NavigateEffect{Path: ClassificationPath(first.Name)}}, effs...)
}

func (s State) applyClassification(r ClassificationResult) (State, []Effect) {
	m := s.Messages()
	if r.Err != nil {
		msg := errorText(r.Err, m.Entity(MsgEntityFetchError, LabelClassification))
		s = s.finishLoad(msg)
		s, effs := s.selectClassification(&models.Classification{Name: r.Call.Name})
		return s, append([]Effect{notify(FetchFailed, msg)}, effs...)
	}
	if r.Classification == nil {
		msg := m.Text(MsgUnexpectedResponse)
		return s.finishLoad(msg), []Effect{notify(UnexpectedEmptyResponse, msg)}
	}

	c := r.Classification.Clone()
	if i := s.find(c.Name); i >= 0 {
		entry := s.Classifications[i].Clone()
		if c.TermCount != nil {
			n := *c.TermCount
			entry.TermCount = &n
		}
		s.Classifications = replaceAt(s.Classifications, i, entry)
	}
	s = s.finishLoad("")
	return s.selectClassification(c)
}

func (s State) applyTags(r TagsResult) (State, []Effect) {
	if r.Err != nil {
		msg := errorText(r.Err, s.Messages().Entity(MsgEntityFetchError, LabelTagPlural))
		s.Tags = nil
		return s.finishLoad(msg), []Effect{notify(FetchFailed, msg)}
	}
	if r.Page == nil {
		s.Tags = nil
		s.Paging = models.Paging{}
		return s, nil
	}
	s.Tags = r.Page.Data
	s.Paging = r.Page.Paging
	return s, nil
}

func (s State) applyPermissions(r PermissionsResult) (State, []Effect) {
	if r.Err != nil {
		msg := errorText(r.Err, s.Messages().Entity(MsgEntityFetchError, LabelPermissionPlural))
		return s, []Effect{notify(FetchFailed, msg)}
	}
	if r.Permission != nil {
		s.Permission = *r.Permission
	}
	return s, nil
}

func (s State) applyClassificationCreated(r ClassificationCreated) (State, []Effect) {
	if r.Err != nil {
		msg := errorText(r.Err, s.Messages().Entity(MsgCreateEntityError, LabelClassification))
		return s, []Effect{notify(CreateFailed, msg)}
	}
	name := r.Call.Payload.Name
	if r.Classification != nil {
		name = r.Classification.Name
	}
	s.AddingClassification = false
	s, effs := s.ListClassifications(false)
	effs = append(effs, NavigateEffect{Path: ClassificationPath(name)})
	s, fetch := s.FetchCurrentClassification(name, false)
	return s, append(effs, fetch...)
}

func (s State) applyClassificationPatched(r ClassificationPatched) (State, []Effect) {
	m := s.Messages()
	if r.Err != nil {
		msg := errorText(r.Err, m.Entity(MsgUpdateEntityError, LabelClassification))
		return s, []Effect{notify(UpdateFailed, msg)}
	}
	if r.Classification == nil {
		msg := m.Text(MsgUnexpectedResponse)
		return s, []Effect{notify(UnexpectedEmptyResponse, msg)}
	}

	updated := r.Classification.Clone()
	s = s.replaceClassification(updated)
	isCurrent := s.Current != nil && s.Current.ID == updated.ID

	if r.Call.Intent == IntentToggleDisabled {
		if !isCurrent {
			return s, nil
		}
		return s.selectClassification(updated)
	}

	if isCurrent {
		s.Current = updated
	}
	if r.Call.Intent == IntentDescription {
		s.EditingDescription = false
	}
	s, effs := s.ListClassifications(false)
	if updated.Name != r.Call.PriorName {
		s.Renaming = false
		effs = append(effs, NavigateEffect{Path: ClassificationPath(updated.Name)})
	}
	s, fetch := s.FetchCurrentClassification(updated.Name, true)
	return s, append(effs, fetch...)
}

func (s State) applyClassificationDeleted(r ClassificationDeleted) (State, []Effect) {
	s.Pending = nil
	if r.Err != nil {
		msg := errorText(r.Err, s.Messages().Entity(MsgDeleteEntityError, LabelClassification))
		return s, []Effect{notify(DeleteFailed, msg)}
	}

	remaining := make([]*models.Classification, 0, len(s.Classifications))
	for _, c := range s.Classifications {
		if c.ID != r.Call.ID {
			remaining = append(remaining, c)
		}
	}
	s.Classifications = remaining
	if len(remaining) == 0 {
		s.Current = nil
		s.Permission = models.OperationPermission{}
		s.Tags = nil
		s.Paging = models.Paging{}
		return s, []Effect{NavigateEffect{Path: ""}}
	}

	next := remaining[0].FullyQualifiedName
	if next == "" {
		next = remaining[0].Name
	}
	s, effs := s.FetchCurrentClassification(RouteName(next), false)
	return s, append([]Effect{NavigateEffect{Path: ClassificationPath(next)}}, effs...)
}

func (s State) applyTagCreated(r TagCreated) (State, []Effect) {
	if r.Err != nil {
		msg := errorText(r.Err, s.Messages().Entity(MsgCreateEntityError, LabelTag))
		return s, []Effect{notify(CreateFailed, msg)}
	}
	s, _ = s.CloseTagModal()
	if s.Current == nil {
		return s, nil
	}
	return s.FetchCurrentClassification(s.Current.Name, true)
}

func (s State) applyTagPatched(r TagPatched) (State, []Effect) {
	m := s.Messages()
	if r.Err != nil {
		msg := errorText(r.Err, m.Entity(MsgUpdateEntityError, LabelTag))
		return s, []Effect{notify(UpdateFailed, msg)}
	}
	if r.Tag == nil {
		msg := m.Text(MsgUnexpectedResponse)
		return s, []Effect{notify(UnexpectedEmptyResponse, msg)}
	}
	if r.Call.Intent == IntentToggleDisabled {
		if s.Current == nil {
			return s, nil
		}
		return s.ListTags(s.Current.Name, nil)
	}
	s, _ = s.CloseTagModal()
	if s.Current == nil {
		return s, nil
	}
	return s.FetchCurrentClassification(s.Current.Name, true)
}

// applyTagDeleted leaves the row in place; re-selecting a copy of the current
// classification reloads the page it is on.
func (s State) applyTagDeleted(r TagDeleted) (State, []Effect) {
	s.Pending = nil
	if r.Err != nil {
		msg := errorText(r.Err, s.Messages().Entity(MsgDeleteEntityError, LabelTag))
		return s, []Effect{notify(DeleteFailed, msg)}
	}
	if s.Current == nil {
		return s, nil
	}
	return s.selectClassification(s.Current.Clone())
}

// replaceClassification swaps the listed entry with c's id for c, keeping the
// listed term count when c carries none
func (s State) replaceClassification(c *models.Classification) State {
	for i, existing := range s.Classifications {
		if existing.ID != c.ID {
			continue
		}
		entry := c.Clone()
		if entry.TermCount == nil && existing.TermCount != nil {
			n := *existing.TermCount
			entry.TermCount = &n
		}
		s.Classifications = replaceAt(s.Classifications, i, entry)
		break
	}
	return s
}

// replaceAt returns a copy of list with index i set to c
func replaceAt(list []*models.Classification, i int, c *models.Classification) []*models.Classification {
	out := make([]*models.Classification, len(list))
	copy(out, list)
	out[i] = c
	return out
}
