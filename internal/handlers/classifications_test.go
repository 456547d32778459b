package handlers

import (
	"net/http"
	"testing"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func newClassificationFixture(oracle staticOracle, cs ...*models.Classification) (*ClassificationHandler, *fakeClassifications, *fakeEnqueuer) {
	repo := newFakeClassifications(cs...)
	jobs := &fakeEnqueuer{}
	h := NewClassificationHandler(repo, &fakeVersions{}, Deps{Oracle: oracle, Jobs: jobs})
	return h, repo, jobs
}

func mount(register func(*mux.Router), prefix string) func(*mux.Router) {
	return func(r *mux.Router) {
		register(r.PathPrefix(prefix).Subrouter())
	}
}

func TestClassificationList(t *testing.T) {
	t.Parallel()

	pii := &models.Classification{ID: uuid.New(), Name: "PII", Provider: models.ProviderSystem}
	tier := &models.Classification{ID: uuid.New(), Name: "Tier", Provider: models.ProviderSystem}
	h, repo, _ := newClassificationFixture(staticOracle{models.ResourceClassification: fullAccess}, pii, tier)
	repo.terms[pii.ID] = 3

	w := serve(t, mount(h.RegisterRoutes, "/classifications"), http.MethodGet, "/classifications?fields=termCount,disabled&limit=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.ClassificationList
	envelope(t, w, &got)

	if got.Paging.Total != 2 {
		t.Errorf("Total = %d, want 2", got.Paging.Total)
	}
	names := []string{}
	for _, c := range got.Data {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"PII", "Tier"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if got.Data[0].TermCount == nil || *got.Data[0].TermCount != 3 {
		t.Errorf("PII termCount = %v, want 3", got.Data[0].TermCount)
	}
}

func TestClassificationListForbidden(t *testing.T) {
	t.Parallel()

	h, _, _ := newClassificationFixture(staticOracle{})
	w := serve(t, mount(h.RegisterRoutes, "/classifications"), http.MethodGet, "/classifications", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestClassificationCreate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		oracle     staticOracle
		body       string
		wantStatus int
		wantJobs   []queue.JobType
	}{
		{
			name:       "trims name and queues a description suggestion",
			oracle:     staticOracle{models.ResourceClassification: fullAccess},
			body:       `{"name":"  Finance  ","description":""}`,
			wantStatus: http.StatusCreated,
			wantJobs:   []queue.JobType{queue.JobTypeSuggestDescription},
		},
		{
			name:       "with description queues nothing",
			oracle:     staticOracle{models.ResourceClassification: fullAccess},
			body:       `{"name":"Finance","description":"Money things"}`,
			wantStatus: http.StatusCreated,
			wantJobs:   []queue.JobType{},
		},
		{
			name:       "duplicate name",
			oracle:     staticOracle{models.ResourceClassification: fullAccess},
			body:       `{"name":"PII","description":"x"}`,
			wantStatus: http.StatusConflict,
			wantJobs:   []queue.JobType{},
		},
		{
			name:       "invalid name",
			oracle:     staticOracle{models.ResourceClassification: fullAccess},
			body:       `{"name":"a.b","description":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantJobs:   []queue.JobType{},
		},
		{
			name:       "no create permission",
			oracle:     staticOracle{models.ResourceClassification: {ViewBasic: true}},
			body:       `{"name":"Finance","description":"x"}`,
			wantStatus: http.StatusForbidden,
			wantJobs:   []queue.JobType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pii := &models.Classification{ID: uuid.New(), Name: "PII"}
			h, _, jobs := newClassificationFixture(tt.oracle, pii)
			w := serve(t, mount(h.RegisterRoutes, "/classifications"), http.MethodPost, "/classifications", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if diff := cmp.Diff(tt.wantJobs, jobs.types()); diff != "" {
				t.Errorf("jobs mismatch (-want +got):\n%s", diff)
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var got models.Classification
			envelope(t, w, &got)
			if got.Name != "Finance" {
				t.Errorf("Name = %q, want Finance", got.Name)
			}
			if got.Provider != models.ProviderUser {
				t.Errorf("Provider = %q, want user", got.Provider)
			}
			if got.UpdatedBy != testUser.Email {
				t.Errorf("UpdatedBy = %q, want %q", got.UpdatedBy, testUser.Email)
			}
		})
	}
}

func TestClassificationPatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		provider    models.ProviderType
		perm        models.OperationPermission
		patch       string
		wantStatus  int
		wantName    string
		wantDesc    string
		wantUpdates int
	}{
		{
			name:        "description edit",
			provider:    models.ProviderUser,
			perm:        models.OperationPermission{ViewBasic: true, EditDescription: true},
			patch:       `[{"op":"replace","path":"/description","value":"Personal data"}]`,
			wantStatus:  http.StatusOK,
			wantName:    "PII",
			wantDesc:    "Personal data",
			wantUpdates: 1,
		},
		{
			name:        "rename",
			provider:    models.ProviderUser,
			perm:        fullAccess,
			patch:       `[{"op":"replace","path":"/name","value":"Personal"}]`,
			wantStatus:  http.StatusOK,
			wantName:    "Personal",
			wantDesc:    "old",
			wantUpdates: 1,
		},
		{
			name:        "no-op patch records no version",
			provider:    models.ProviderUser,
			perm:        fullAccess,
			patch:       `[{"op":"replace","path":"/description","value":"old"}]`,
			wantStatus:  http.StatusOK,
			wantName:    "PII",
			wantDesc:    "old",
			wantUpdates: 0,
		},
		{
			name:       "system classification cannot be renamed",
			provider:   models.ProviderSystem,
			perm:       fullAccess,
			patch:      `[{"op":"replace","path":"/name","value":"Personal"}]`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "description edit without permission",
			provider:   models.ProviderUser,
			perm:       models.OperationPermission{ViewBasic: true, EditDisplayName: true},
			patch:      `[{"op":"replace","path":"/description","value":"x"}]`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "read-only field",
			provider:   models.ProviderUser,
			perm:       fullAccess,
			patch:      `[{"op":"replace","path":"/version","value":9}]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty patch",
			provider:   models.ProviderUser,
			perm:       fullAccess,
			patch:      `[]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rename to an invalid name",
			provider:   models.ProviderUser,
			perm:       fullAccess,
			patch:      `[{"op":"replace","path":"/name","value":"a::b"}]`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pii := &models.Classification{ID: uuid.New(), Name: "PII", Description: "old", Provider: tt.provider, Version: 0.1}
			h, repo, _ := newClassificationFixture(staticOracle{models.ResourceClassification: tt.perm}, pii)
			w := serve(t, mount(h.RegisterRoutes, "/classifications"), http.MethodPatch, "/classifications/"+pii.ID.String(), tt.patch)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if len(repo.updates) != tt.wantUpdates {
				t.Errorf("updates = %d, want %d", len(repo.updates), tt.wantUpdates)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got models.Classification
			envelope(t, w, &got)
			if got.Name != tt.wantName || got.Description != tt.wantDesc {
				t.Errorf("got %s/%q, want %s/%q", got.Name, got.Description, tt.wantName, tt.wantDesc)
			}
			if tt.wantUpdates > 0 && got.Version != 0.2 {
				t.Errorf("Version = %v, want 0.2", got.Version)
			}
		})
	}
}

func TestClassificationPatchClearsDisplayName(t *testing.T) {
	t.Parallel()

	pii := &models.Classification{ID: uuid.New(), Name: "PII", DisplayName: "Personal", Description: "old", Provider: models.ProviderUser, Version: 0.1}
	h, repo, _ := newClassificationFixture(staticOracle{models.ResourceClassification: fullAccess}, pii)
	w := serve(t, mount(h.RegisterRoutes, "/classifications"), http.MethodPatch, "/classifications/"+pii.ID.String(),
		`[{"op":"remove","path":"/displayName"}]`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got models.Classification
	envelope(t, w, &got)
	if got.DisplayName != "" {
		t.Errorf("DisplayName = %q, want empty", got.DisplayName)
	}
	if got.Name != "PII" || got.Description != "old" || got.Provider != models.ProviderUser {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updates))
	}
	want := []models.FieldChange{{Name: "displayName", OldValue: "Personal"}}
	if diff := cmp.Diff(want, repo.updates[0].FieldsDeleted); diff != "" {
		t.Errorf("change mismatch (-want +got):\n%s", diff)
	}
}

func TestClassificationDelete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		provider   models.ProviderType
		perm       models.OperationPermission
		terms      int
		query      string
		wantStatus int
		wantJobs   []queue.JobType
	}{
		{
			name:       "empty classification",
			provider:   models.ProviderUser,
			perm:       fullAccess,
			wantStatus: http.StatusOK,
			wantJobs:   []queue.JobType{queue.JobTypeFeedCleanup},
		},
		{
			name:       "tags present without recursive",
			provider:   models.ProviderUser,
			perm:       fullAccess,
			terms:      2,
			wantStatus: http.StatusBadRequest,
			wantJobs:   []queue.JobType{},
		},
		{
			name:       "tags present with recursive",
			provider:   models.ProviderUser,
			perm:       fullAccess,
			terms:      2,
			query:      "?recursive=true&hardDelete=true",
			wantStatus: http.StatusOK,
			wantJobs:   []queue.JobType{queue.JobTypeFeedCleanup},
		},
		{
			name:       "system provider",
			provider:   models.ProviderSystem,
			perm:       fullAccess,
			wantStatus: http.StatusForbidden,
			wantJobs:   []queue.JobType{},
		},
		{
			name:       "no delete permission",
			provider:   models.ProviderUser,
			perm:       models.OperationPermission{ViewBasic: true, EditAll: true},
			wantStatus: http.StatusForbidden,
			wantJobs:   []queue.JobType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &models.Classification{ID: uuid.New(), Name: "Finance", Provider: tt.provider}
			h, repo, jobs := newClassificationFixture(staticOracle{models.ResourceClassification: tt.perm}, c)
			repo.terms[c.ID] = tt.terms

			w := serve(t, mount(h.RegisterRoutes, "/classifications"), http.MethodDelete, "/classifications/"+c.ID.String()+tt.query, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			_, stillThere := repo.byID[c.ID]
			if stillThere == (tt.wantStatus == http.StatusOK) {
				t.Errorf("classification present after delete = %v", stillThere)
			}
			if diff := cmp.Diff(tt.wantJobs, jobs.types()); diff != "" {
				t.Errorf("jobs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassificationVersions(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	versionRepo := &fakeVersions{history: map[uuid.UUID]*models.EntityHistory{
		id: {Versions: []models.EntityVersion{{Version: 0.2, UpdatedBy: "ada"}, {Version: 0.1, UpdatedBy: "ada"}}},
	}}
	h := NewClassificationHandler(newFakeClassifications(), versionRepo, Deps{Oracle: staticOracle{models.ResourceClassification: fullAccess}})
	routes := mount(h.RegisterRoutes, "/classifications")

	w := serve(t, routes, http.MethodGet, "/classifications/"+id.String()+"/versions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var history models.EntityHistory
	envelope(t, w, &history)
	if history.EntityType != "classification" || len(history.Versions) != 2 {
		t.Errorf("history = %+v", history)
	}

	w = serve(t, routes, http.MethodGet, "/classifications/"+id.String()+"/versions/0.1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}

	w = serve(t, routes, http.MethodGet, "/classifications/"+id.String()+"/versions/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad version status = %d, want 400", w.Code)
	}

	w = serve(t, routes, http.MethodGet, "/classifications/"+uuid.NewString()+"/versions", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown entity status = %d, want 404", w.Code)
	}
}
