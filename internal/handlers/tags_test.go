package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func piiTags(n int) (*models.Classification, []*models.Tag) {
	pii := &models.Classification{ID: uuid.New(), Name: "PII", Provider: models.ProviderUser}
	ref := &models.EntityReference{ID: pii.ID, Name: pii.Name, Type: "classification"}
	tags := make([]*models.Tag, n)
	for i := range tags {
		name := fmt.Sprintf("tag%02d", i)
		tags[i] = &models.Tag{
			ID:                 uuid.New(),
			Name:               name,
			FullyQualifiedName: models.TagFQN(pii.Name, name),
			Classification:     ref,
			Provider:           models.ProviderUser,
			Version:            0.1,
		}
	}
	return pii, tags
}

func newTagFixture(oracle staticOracle, pageSize int, c *models.Classification, ts ...*models.Tag) (*TagHandler, *fakeTags, *fakeEnqueuer) {
	tags := newFakeTags(ts...)
	jobs := &fakeEnqueuer{}
	h := NewTagHandler(tags, newFakeClassifications(c), &fakeVersions{}, pageSize, Deps{Oracle: oracle, Jobs: jobs})
	return h, tags, jobs
}

func TestTagList(t *testing.T) {
	t.Parallel()

	pii, tags := piiTags(12)
	h, repo, _ := newTagFixture(staticOracle{models.ResourceTag: fullAccess}, 10, pii, tags...)
	routes := mount(h.RegisterRoutes, "/tags")

	w := serve(t, routes, http.MethodGet, "/tags?parent=PII&fields=usageCount,disabled", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var page models.TagList
	envelope(t, w, &page)
	if len(page.Data) != 10 {
		t.Errorf("page size = %d, want the configured default of 10", len(page.Data))
	}
	if page.Paging.Total != 12 || page.Paging.After == "" {
		t.Errorf("paging = %+v, want total 12 with an after cursor", page.Paging)
	}

	w = serve(t, routes, http.MethodGet, "/tags?parent=PII&after="+page.Paging.After, "")
	if w.Code != http.StatusOK {
		t.Fatalf("next page status = %d, want 200", w.Code)
	}
	want := []database.PageWindow{
		{Limit: 10},
		{Limit: 10, After: page.Paging.After},
	}
	if diff := cmp.Diff(want, repo.windows); diff != "" {
		t.Errorf("windows mismatch (-want +got):\n%s", diff)
	}
}

func TestTagListRejectsBadRequests(t *testing.T) {
	t.Parallel()

	pii, tags := piiTags(1)
	h, _, _ := newTagFixture(staticOracle{models.ResourceTag: fullAccess}, 10, pii, tags...)
	routes := mount(h.RegisterRoutes, "/tags")

	tests := []struct {
		name   string
		target string
	}{
		{name: "missing parent", target: "/tags"},
		{name: "both cursors", target: "/tags?parent=PII&before=YQ&after=Yg"},
		{name: "malformed cursor", target: "/tags?parent=PII&after=!!!"},
		{name: "bad limit", target: "/tags?parent=PII&limit=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := serve(t, routes, http.MethodGet, tt.target, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestTagCreatePermissions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		oracle     staticOracle
		wantStatus int
	}{
		{
			name:       "create on tag",
			oracle:     staticOracle{models.ResourceTag: {Create: true}},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "edit all on the parent classification",
			oracle:     staticOracle{models.ResourceClassification: {EditAll: true}},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "neither",
			oracle:     staticOracle{models.ResourceTag: {ViewBasic: true, EditTags: true}},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pii, _ := piiTags(0)
			h, _, jobs := newTagFixture(tt.oracle, 10, pii)
			w := serve(t, mount(h.RegisterRoutes, "/tags"), http.MethodPost, "/tags",
				`{"name":"Email","classification":"PII","description":""}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var got models.Tag
			envelope(t, w, &got)
			if got.FullyQualifiedName != "PII.Email" {
				t.Errorf("FullyQualifiedName = %q, want PII.Email", got.FullyQualifiedName)
			}
			if diff := cmp.Diff([]queue.JobType{queue.JobTypeSuggestDescription}, jobs.types()); diff != "" {
				t.Errorf("jobs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTagCreateUnknownClassification(t *testing.T) {
	t.Parallel()

	pii, _ := piiTags(0)
	h, _, _ := newTagFixture(staticOracle{models.ResourceTag: fullAccess}, 10, pii)
	w := serve(t, mount(h.RegisterRoutes, "/tags"), http.MethodPost, "/tags", `{"name":"Email","classification":"Nope"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTagPatchToggleDisabled(t *testing.T) {
	t.Parallel()

	pii, tags := piiTags(1)
	h, repo, _ := newTagFixture(staticOracle{models.ResourceTag: fullAccess}, 10, pii, tags...)
	w := serve(t, mount(h.RegisterRoutes, "/tags"), http.MethodPatch, "/tags/"+tags[0].ID.String(),
		`[{"op":"replace","path":"/disabled","value":true}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got models.Tag
	envelope(t, w, &got)
	if !got.Disabled {
		t.Error("expected tag to be disabled")
	}
	if len(repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updates))
	}
	if diff := cmp.Diff([]models.FieldChange{{Name: "disabled", OldValue: false, NewValue: true}}, repo.updates[0].FieldsUpdated); diff != "" {
		t.Errorf("change mismatch (-want +got):\n%s", diff)
	}
}

func TestTagPatchClearsDisplayName(t *testing.T) {
	t.Parallel()

	pii, tags := piiTags(1)
	tags[0].DisplayName = "Email address"
	h, repo, _ := newTagFixture(staticOracle{models.ResourceTag: fullAccess}, 10, pii, tags...)
	w := serve(t, mount(h.RegisterRoutes, "/tags"), http.MethodPatch, "/tags/"+tags[0].ID.String(),
		`[{"op":"remove","path":"/displayName"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got models.Tag
	envelope(t, w, &got)
	if got.DisplayName != "" {
		t.Errorf("DisplayName = %q, want empty", got.DisplayName)
	}
	if got.FullyQualifiedName != tags[0].FullyQualifiedName || got.Classification == nil {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updates))
	}
}

func TestTagPatchRequiresEditAllToDisable(t *testing.T) {
	t.Parallel()

	pii, tags := piiTags(1)
	h, _, _ := newTagFixture(staticOracle{models.ResourceTag: {ViewBasic: true, EditDescription: true}}, 10, pii, tags...)
	w := serve(t, mount(h.RegisterRoutes, "/tags"), http.MethodPatch, "/tags/"+tags[0].ID.String(),
		`[{"op":"replace","path":"/disabled","value":true}]`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestTagDelete(t *testing.T) {
	t.Parallel()

	pii, tags := piiTags(2)
	tags[1].Provider = models.ProviderSystem
	h, repo, jobs := newTagFixture(staticOracle{models.ResourceTag: fullAccess}, 10, pii, tags...)
	routes := mount(h.RegisterRoutes, "/tags")

	w := serve(t, routes, http.MethodDelete, "/tags/"+tags[0].ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if _, ok := repo.byID[tags[0].ID]; ok {
		t.Error("tag still present after delete")
	}
	if len(jobs.jobs) != 1 || jobs.jobs[0].Type != queue.JobTypeFeedCleanup || jobs.jobs[0].EntityFQN != "PII.tag00" {
		t.Errorf("jobs = %+v, want one feed cleanup for PII.tag00", jobs.jobs)
	}

	w = serve(t, routes, http.MethodDelete, "/tags/"+tags[1].ID.String(), "")
	if w.Code != http.StatusForbidden {
		t.Errorf("system tag delete status = %d, want 403", w.Code)
	}

	w = serve(t, routes, http.MethodDelete, "/tags/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}
