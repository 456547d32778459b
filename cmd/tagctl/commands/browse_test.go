package commands

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

var allowAll = models.OperationPermission{Create: true, Delete: true, ViewAll: true, ViewBasic: true, EditAll: true}

// memCatalog is a single-page in-memory catalog
type memCatalog struct {
	mu              sync.Mutex
	classifications []*models.Classification
	tags            map[string][]*models.Tag
	global          []models.ResourcePermission
}

func newMemCatalog(admin bool) *memCatalog {
	m := &memCatalog{tags: map[string][]*models.Tag{}}
	for _, name := range []string{"PII", "Tier"} {
		m.classifications = append(m.classifications, &models.Classification{
			ID: uuid.New(), Name: name, FullyQualifiedName: name, Provider: models.ProviderUser,
		})
	}
	m.addTag("PII", "Email")
	if admin {
		m.global = []models.ResourcePermission{
			{Resource: models.ResourceClassification, Permission: allowAll},
			{Resource: models.ResourceTag, Permission: allowAll},
		}
	}
	return m
}

func (m *memCatalog) addTag(parent, name string) *models.Tag {
	t := &models.Tag{
		ID:                 uuid.New(),
		Name:               name,
		FullyQualifiedName: models.TagFQN(parent, name),
		Classification:     &models.EntityReference{Name: parent, Type: "classification"},
		Provider:           models.ProviderUser,
	}
	m.tags[parent] = append(m.tags[parent], t)
	return t
}

func (m *memCatalog) tag(parent, name string) *models.Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags[parent] {
		if t.Name == name {
			return t.Clone()
		}
	}
	return nil
}

func missing(what string) error {
	return &catalog.APIError{StatusCode: http.StatusNotFound, Message: what + " not found"}
}

func (m *memCatalog) ListPermissions(context.Context) ([]models.ResourcePermission, error) {
	return m.global, nil
}

func (m *memCatalog) ListClassifications(context.Context, models.Fields, int) (*models.ClassificationList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &models.ClassificationList{Paging: models.Paging{Total: len(m.classifications)}}
	for _, c := range m.classifications {
		cl := c.Clone()
		n := len(m.tags[c.Name])
		cl.TermCount = &n
		out.Data = append(out.Data, cl)
	}
	return out, nil
}

func (m *memCatalog) GetClassificationByName(_ context.Context, name string, _ models.Fields) (*models.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.classifications {
		if c.Name == name {
			return c.Clone(), nil
		}
	}
	return nil, missing("classification " + name)
}

func (m *memCatalog) CreateClassification(_ context.Context, p models.CreateClassification) (*models.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Classification{ID: uuid.New(), Name: p.Name, FullyQualifiedName: p.Name, Description: p.Description}
	m.classifications = append(m.classifications, c)
	return c.Clone(), nil
}

func (m *memCatalog) PatchClassification(_ context.Context, id uuid.UUID, p jsonpatch.Patch) (*models.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := jsonpatch.Marshal(p)
	if err != nil {
		return nil, err
	}
	for i, c := range m.classifications {
		if c.ID != id {
			continue
		}
		var updated models.Classification
		if err := jsonpatch.Apply(c, raw, &updated); err != nil {
			return nil, err
		}
		updated.FullyQualifiedName = updated.Name
		if updated.Name != c.Name {
			m.tags[updated.Name] = m.tags[c.Name]
			delete(m.tags, c.Name)
		}
		m.classifications[i] = &updated
		return updated.Clone(), nil
	}
	return nil, missing("classification")
}

func (m *memCatalog) DeleteClassification(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.classifications {
		if c.ID == id {
			m.classifications = append(m.classifications[:i:i], m.classifications[i+1:]...)
			delete(m.tags, c.Name)
			return nil
		}
	}
	return missing("classification")
}

func (m *memCatalog) ListTags(_ context.Context, f catalog.TagFilter) (*models.TagList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &models.TagList{Data: []*models.Tag{}, Paging: models.Paging{Total: len(m.tags[f.Parent])}}
	for _, t := range m.tags[f.Parent] {
		page.Data = append(page.Data, t.Clone())
	}
	return page, nil
}

func (m *memCatalog) CreateTag(_ context.Context, p models.CreateTag) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.addTag(p.Classification, p.Name)
	t.Description = p.Description
	return t.Clone(), nil
}

func (m *memCatalog) PatchTag(_ context.Context, id uuid.UUID, p jsonpatch.Patch) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := jsonpatch.Marshal(p)
	if err != nil {
		return nil, err
	}
	for _, tags := range m.tags {
		for i, t := range tags {
			if t.ID != id {
				continue
			}
			var updated models.Tag
			if err := jsonpatch.Apply(t, raw, &updated); err != nil {
				return nil, err
			}
			tags[i] = &updated
			return updated.Clone(), nil
		}
	}
	return nil, missing("tag")
}

func (m *memCatalog) DeleteTag(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for parent, tags := range m.tags {
		for i, t := range tags {
			if t.ID == id {
				m.tags[parent] = append(tags[:i:i], tags[i+1:]...)
				return nil
			}
		}
	}
	return missing("tag")
}

func (m *memCatalog) GetPermissions(context.Context, models.ResourceEntity, uuid.UUID) (*models.OperationPermission, error) {
	if len(m.global) == 0 {
		return &models.OperationPermission{ViewBasic: true}, nil
	}
	p := allowAll
	return &p, nil
}

var _ catalog.Service = (*memCatalog)(nil)

func newTestSession(t *testing.T, svc catalog.Service, input string) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r := NewRenderer(&out, "http://catalog.test", true)
	return NewSession(context.Background(), svc, 10, r, strings.NewReader(input), nil), &out
}

func TestSessionOpen(t *testing.T) {
	t.Parallel()

	s, out := newTestSession(t, newMemCatalog(true), "")
	s.Open("/classification/PII")

	st := s.State()
	if st.Current == nil || st.Current.Name != "PII" {
		t.Fatalf("Current = %+v, want PII", st.Current)
	}
	for _, want := range []string{"> PII", "  Tier", "Email", "Disable, Delete"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	// a selection taken from the path does not push a new path
	if strings.Contains(out.String(), "-> ") {
		t.Errorf("Open() navigated:\n%s", out.String())
	}
}

func TestSessionSelectTierAlias(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, newMemCatalog(true), "")
	s.Open("")
	s.Exec("cd Tier1")
	if got := s.State().Current.Name; got != "Tier" {
		t.Errorf("Current = %s, want Tier", got)
	}
}

func TestSessionTagLifecycle(t *testing.T) {
	t.Parallel()

	svc := newMemCatalog(true)
	s, out := newTestSession(t, svc, "n\ny\n")
	s.Open("PII")

	s.Exec(`tag-add Phone "Phone numbers"`)
	phone := svc.tag("PII", "Phone")
	if phone == nil || phone.Description != "Phone numbers" {
		t.Fatalf("created tag = %+v", phone)
	}

	s.Exec("tag-toggle Phone")
	if !svc.tag("PII", "Phone").Disabled {
		t.Error("tag-toggle did not disable Phone")
	}

	s.Exec("tag-describe Email primary address")
	if got := svc.tag("PII", "Email").Description; got != "primary address" {
		t.Errorf("Email description = %q", got)
	}

	s.Exec("tag-rm Email")
	if svc.tag("PII", "Email") == nil {
		t.Fatal("tag deleted without confirmation")
	}
	s.Exec("tag-rm Email")
	if svc.tag("PII", "Email") != nil {
		t.Error("tag not deleted after confirmation")
	}
	if s.State().Pending != nil {
		t.Error("pending deletion left behind")
	}
	if !strings.Contains(out.String(), `Delete tag "Email"? [y/N]`) {
		t.Errorf("no confirmation prompt:\n%s", out.String())
	}
}

func TestSessionClassificationEdits(t *testing.T) {
	t.Parallel()

	svc := newMemCatalog(true)
	s, out := newTestSession(t, svc, "")
	s.Open("PII")

	s.Exec("rename Personal")
	st := s.State()
	if st.Current.Name != "Personal" || st.Renaming {
		t.Fatalf("after rename: current %s, renaming %v", st.Current.Name, st.Renaming)
	}
	if !strings.Contains(out.String(), "-> /classification/Personal") {
		t.Errorf("rename did not navigate:\n%s", out.String())
	}

	s.Exec("describe Personal **data**")
	if got := s.State().Current.Description; got != "Personal **data**" {
		t.Errorf("Description = %q", got)
	}

	s.Exec("new Sensitivity levels of care")
	if got := s.State().Current.Name; got != "Sensitivity" {
		t.Errorf("Current after create = %s, want Sensitivity", got)
	}
}

func TestSessionWithoutPermission(t *testing.T) {
	t.Parallel()

	svc := newMemCatalog(false)
	s, out := newTestSession(t, svc, "")
	s.Open("")

	for _, line := range []string{"tag-add Phone", "toggle", "tag-rm Email", "new Other"} {
		s.Exec(line)
	}
	if n := strings.Count(out.String(), "You do not have permission for this action."); n < 4 {
		t.Errorf("permission warning shown %d times, want at least 4:\n%s", n, out.String())
	}
	if svc.tag("PII", "Phone") != nil || svc.tag("PII", "Email") == nil {
		t.Error("catalog changed without permission")
	}
}

func TestSessionRun(t *testing.T) {
	t.Parallel()

	s, out := newTestSession(t, newMemCatalog(true), "ls\nbogus\nnext\nquit\nls\n")
	if err := s.Run(""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `unknown command "bogus"`) {
		t.Errorf("unknown command not reported:\n%s", text)
	}
	if !strings.Contains(text, "no next page") {
		t.Errorf("missing paging warning:\n%s", text)
	}
	if strings.Count(text, "> PII") != 2 {
		t.Errorf("commands after quit were run:\n%s", text)
	}
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want []string
	}{
		{line: "", want: nil},
		{line: "  ls  ", want: []string{"ls"}},
		{line: `tag-add Phone "Phone numbers"`, want: []string{"tag-add", "Phone", "Phone numbers"}},
		{line: `cd "Data Quality"`, want: []string{"cd", "Data Quality"}},
		{line: `describe ""`, want: []string{"describe", ""}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitArgs(tt.line)); diff != "" {
			t.Errorf("splitArgs(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}
