package browser

import (
	"net/url"
	"testing"

	"github.com/benvon/tag-catalog/internal/models"
)

func TestPermissionHelpers(t *testing.T) {
	t.Parallel()

	user := &models.Classification{Name: "PII", Provider: models.ProviderUser}
	system := &models.Classification{Name: "Tier", Provider: models.ProviderSystem}
	userTag := &models.Tag{Name: "Email", Provider: models.ProviderUser}
	systemTag := &models.Tag{Name: "Tier1", Provider: models.ProviderSystem}

	tests := []struct {
		name           string
		global         []models.ResourcePermission
		current        *models.Classification
		permission     models.OperationPermission
		wantCreateTag  bool
		wantDeleteCls  bool
		wantDeleteTag  bool
		wantSystemTag  bool
		wantCreateCls  bool
		wantEditCls    bool
		wantToggleText string
	}{
		{
			name:           "no permissions",
			current:        user,
			wantToggleText: "You do not have permission for this action.",
		},
		{
			name: "global tag create",
			global: []models.ResourcePermission{
				{Resource: models.ResourceTag, Permission: models.OperationPermission{Create: true}},
			},
			current:        user,
			wantCreateTag:  true,
			wantToggleText: "You do not have permission for this action.",
		},
		{
			name:           "edit all on the classification grants create tag",
			current:        user,
			permission:     models.OperationPermission{EditAll: true, Delete: true},
			wantCreateTag:  true,
			wantDeleteCls:  true,
			wantToggleText: "You do not have permission for this action.",
		},
		{
			name:           "system classifications are never deletable",
			current:        system,
			permission:     models.OperationPermission{Delete: true},
			wantToggleText: "You do not have permission for this action.",
		},
		{
			name: "tag edit all",
			global: []models.ResourcePermission{
				{Resource: models.ResourceTag, Permission: models.OperationPermission{EditAll: true}},
				{Resource: models.ResourceClassification, Permission: models.OperationPermission{Create: true, EditAll: true}},
			},
			current:        user,
			wantDeleteTag:  true,
			wantCreateCls:  true,
			wantEditCls:    true,
			wantToggleText: "Disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(Options{Permissions: tt.global})
			s.Current = tt.current
			s.Permission = tt.permission

			if got := s.CanCreateTag(); got != tt.wantCreateTag {
				t.Errorf("CanCreateTag() = %v, want %v", got, tt.wantCreateTag)
			}
			if got := s.CanDeleteClassification(); got != tt.wantDeleteCls {
				t.Errorf("CanDeleteClassification() = %v, want %v", got, tt.wantDeleteCls)
			}
			if got := s.CanDeleteTag(userTag); got != tt.wantDeleteTag {
				t.Errorf("CanDeleteTag(user) = %v, want %v", got, tt.wantDeleteTag)
			}
			if s.CanDeleteTag(systemTag) {
				t.Error("CanDeleteTag(system) = true")
			}
			if got := s.CanCreateClassification(); got != tt.wantCreateCls {
				t.Errorf("CanCreateClassification() = %v, want %v", got, tt.wantCreateCls)
			}
			if got := s.CanEditClassification(); got != tt.wantEditCls {
				t.Errorf("CanEditClassification() = %v, want %v", got, tt.wantEditCls)
			}
			if got := s.DisableTagTitle(userTag); got != tt.wantToggleText {
				t.Errorf("DisableTagTitle() = %q, want %q", got, tt.wantToggleText)
			}
		})
	}
}

func TestDisableTagTitleForDisabledTag(t *testing.T) {
	t.Parallel()

	s := New(Options{Permissions: []models.ResourcePermission{
		{Resource: models.ResourceTag, Permission: models.OperationPermission{EditAll: true}},
	}})
	if got := s.DisableTagTitle(&models.Tag{Disabled: true}); got != "Enable" {
		t.Errorf("DisableTagTitle() = %q, want Enable", got)
	}
}

func TestUsageLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fqn       string
		wantFacet string
	}{
		{fqn: "PII.Sensitive", wantFacet: `{"tags.tagFQN":["PII.Sensitive"]}`},
		{fqn: "Tier.Tier1", wantFacet: `{"tier.tagFQN":["Tier.Tier1"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.fqn, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(UsageLink(tt.fqn))
			if err != nil {
				t.Fatalf("UsageLink() is not a URL: %v", err)
			}
			if u.Path != "/explore/tables" {
				t.Errorf("path = %q", u.Path)
			}
			if got := u.Query().Get("facetFilter"); got != tt.wantFacet {
				t.Errorf("facetFilter = %s, want %s", got, tt.wantFacet)
			}
		})
	}
}

func TestClassificationPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{name: "PII", path: "/classification/PII"},
		{name: "Data Quality", path: "/classification/Data%20Quality"},
		{name: "a/b", path: "/classification/a%2Fb"},
		{name: "", path: ""},
	}
	for _, tt := range tests {
		if got := ClassificationPath(tt.name); got != tt.path {
			t.Errorf("ClassificationPath(%q) = %q, want %q", tt.name, got, tt.path)
		}
		name, ok := ParseClassificationPath(tt.path)
		if ok != (tt.name != "") || name != tt.name {
			t.Errorf("ParseClassificationPath(%q) = %q, %v", tt.path, name, ok)
		}
	}
	if _, ok := ParseClassificationPath("/glossary/PII"); ok {
		t.Error("parsed a path outside the classification route")
	}
}

func TestRouteName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Tier":    "Tier",
		"Tier1":   "Tier",
		"TierX":   "Tier",
		"PII":     "PII",
		"MyTier1": "MyTier1",
	}
	for in, want := range tests {
		if got := RouteName(in); got != want {
			t.Errorf("RouteName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTabLabel(t *testing.T) {
	t.Parallel()

	three := 3
	tests := []struct {
		count  *int
		active bool
		want   string
	}{
		{count: &three, active: false, want: "Tags (3)"},
		{count: &three, active: true, want: "[Tags (3)]"},
		{count: nil, active: false, want: "Tags"},
	}
	for _, tt := range tests {
		if got := TabLabel("Tags", tt.count, tt.active); got != tt.want {
			t.Errorf("TabLabel() = %q, want %q", got, tt.want)
		}
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	if got := English.Entity(MsgDeleteEntityError, LabelTag); got != "Error while deleting tag!" {
		t.Errorf("Entity() = %q", got)
	}
	custom := Messages{MsgEntityFetchError: "Fehler beim Laden: {{entity}}", LabelTagPlural: "Tags"}
	if got := custom.Entity(MsgEntityFetchError, LabelTagPlural); got != "Fehler beim Laden: Tags" {
		t.Errorf("Entity() = %q", got)
	}
	if got := custom.Text(MsgUnexpectedResponse); got != string(MsgUnexpectedResponse) {
		t.Errorf("missing key rendered as %q, want the key", got)
	}
	if FetchFailed.String() != "fetch_failed" || ErrorKind(0).String() != "unknown" {
		t.Error("unexpected ErrorKind names")
	}
}

func TestNewStateUsesLocalizedCatalog(t *testing.T) {
	t.Parallel()

	s := New(Options{Messages: Messages{MsgNoPermission: "Keine Berechtigung"}})
	if got := s.DisableTagTitle(&models.Tag{}); got != "Keine Berechtigung" {
		t.Errorf("DisableTagTitle() = %q", got)
	}
	if s.PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d, want %d", s.PageSize(), DefaultPageSize)
	}
}
