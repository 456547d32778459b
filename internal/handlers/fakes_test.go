package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type fakeClassifications struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Classification
	terms   map[uuid.UUID]int
	updates []models.ChangeDescription
}

func newFakeClassifications(cs ...*models.Classification) *fakeClassifications {
	f := &fakeClassifications{byID: map[uuid.UUID]*models.Classification{}, terms: map[uuid.UUID]int{}}
	for _, c := range cs {
		f.byID[c.ID] = c.Clone()
	}
	return f
}

func (f *fakeClassifications) withFields(c *models.Classification, fields models.Fields) *models.Classification {
	out := c.Clone()
	if fields.Has(models.FieldTermCount) {
		n := f.terms[c.ID]
		out.TermCount = &n
	}
	return out
}

func (f *fakeClassifications) List(_ context.Context, fields models.Fields, limit int) ([]*models.Classification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Classification
	for _, c := range f.byID {
		out = append(out, f.withFields(c, fields))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeClassifications) GetByName(_ context.Context, name string, fields models.Fields) (*models.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.Name == name {
			return f.withFields(c, fields), nil
		}
	}
	return nil, fmt.Errorf("classification %q: %w", name, database.ErrNotFound)
}

func (f *fakeClassifications) GetByID(_ context.Context, id uuid.UUID, fields models.Fields) (*models.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("classification %s: %w", id, database.ErrNotFound)
	}
	return f.withFields(c, fields), nil
}

func (f *fakeClassifications) Create(_ context.Context, c *models.Classification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Name == c.Name {
			return fmt.Errorf("classification %q: %w", c.Name, database.ErrConflict)
		}
	}
	c.ID = uuid.New()
	c.FullyQualifiedName = c.Name
	c.Version = models.InitialVersion
	f.byID[c.ID] = c.Clone()
	return nil
}

func (f *fakeClassifications) Update(_ context.Context, updated *models.Classification, change models.ChangeDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[updated.ID]; !ok {
		return fmt.Errorf("classification %s: %w", updated.ID, database.ErrNotFound)
	}
	updated.Version = database.NextVersion(updated.Version)
	updated.FullyQualifiedName = updated.Name
	f.byID[updated.ID] = updated.Clone()
	f.updates = append(f.updates, change)
	return nil
}

func (f *fakeClassifications) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return fmt.Errorf("classification %s: %w", id, database.ErrNotFound)
	}
	delete(f.byID, id)
	return nil
}

type fakeTags struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Tag
	windows []database.PageWindow
	updates []models.ChangeDescription
}

func newFakeTags(ts ...*models.Tag) *fakeTags {
	f := &fakeTags{byID: map[uuid.UUID]*models.Tag{}}
	for _, t := range ts {
		f.byID[t.ID] = t.Clone()
	}
	return f
}

func (f *fakeTags) ListByParent(_ context.Context, parent string, _ models.Fields, w database.PageWindow) ([]*models.Tag, models.Paging, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, w)
	if w.After != "" {
		if _, err := database.DecodeCursor(w.After); err != nil {
			return nil, models.Paging{}, err
		}
	}
	var out []*models.Tag
	for _, t := range f.byID {
		if t.ClassificationName() == parent {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	paging := models.Paging{Total: len(out)}
	if len(out) > w.Limit {
		out = out[:w.Limit]
		paging.After = database.EncodeCursor(out[len(out)-1].Name)
	}
	return out, paging, nil
}

func (f *fakeTags) GetByID(_ context.Context, id uuid.UUID, _ models.Fields) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", id, database.ErrNotFound)
	}
	return t.Clone(), nil
}

func (f *fakeTags) GetByFQN(_ context.Context, classification, name string, _ models.Fields) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byID {
		if t.ClassificationName() == classification && t.Name == name {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("tag %s.%s: %w", classification, name, database.ErrNotFound)
}

func (f *fakeTags) Create(_ context.Context, t *models.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.Version = models.InitialVersion
	t.FullyQualifiedName = models.TagFQN(t.Classification.Name, t.Name)
	f.byID[t.ID] = t.Clone()
	return nil
}

func (f *fakeTags) Update(_ context.Context, updated *models.Tag, change models.ChangeDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	updated.Version = database.NextVersion(updated.Version)
	f.byID[updated.ID] = updated.Clone()
	f.updates = append(f.updates, change)
	return nil
}

func (f *fakeTags) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return fmt.Errorf("tag %s: %w", id, database.ErrNotFound)
	}
	delete(f.byID, id)
	return nil
}

type fakeVersions struct {
	history map[uuid.UUID]*models.EntityHistory
}

func (f *fakeVersions) ListByEntity(_ context.Context, id uuid.UUID) (*models.EntityHistory, error) {
	h, ok := f.history[id]
	if !ok {
		return nil, fmt.Errorf("versions of %s: %w", id, database.ErrNotFound)
	}
	return h, nil
}

func (f *fakeVersions) Get(_ context.Context, id uuid.UUID, version float64) (*models.EntityVersion, error) {
	if h, ok := f.history[id]; ok {
		for _, v := range h.Versions {
			if v.Version == version {
				return &v, nil
			}
		}
	}
	return nil, fmt.Errorf("version %.1f of %s: %w", version, id, database.ErrNotFound)
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []*queue.Job
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeEnqueuer) types() []queue.JobType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]queue.JobType, len(f.jobs))
	for i, j := range f.jobs {
		out[i] = j.Type
	}
	return out
}

// staticOracle grants the same permission on every subject of a resource type
type staticOracle map[models.ResourceEntity]models.OperationPermission

func (o staticOracle) Evaluate(_ context.Context, _ *models.User, subject permission.Subject) (models.OperationPermission, error) {
	return o[subject.Resource], nil
}

var fullAccess = models.OperationPermission{
	Create: true, Delete: true, ViewAll: true, ViewBasic: true,
	EditAll: true, EditDescription: true, EditDisplayName: true, EditTags: true,
}

var testUser = &models.User{Email: "ada@example.com", Roles: []string{models.RoleAdmin}}

// serve routes req through a router built by register, with testUser attached
func serve(t *testing.T, register func(*mux.Router), method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	register(r)
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req = req.WithContext(request.WithUser(req.Context(), testUser))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope decodes the data member of a success envelope into out
func envelope(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success {
		t.Fatalf("expected success envelope, got status %d: %s", w.Code, body.Message)
	}
	if out != nil {
		if err := json.Unmarshal(body.Data, out); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
	}
}

func intPtr(n int) *int { return &n }
