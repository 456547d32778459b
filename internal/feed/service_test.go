package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

type fakeThreads struct {
	created     []*models.Thread
	posts       map[uuid.UUID][]models.Post
	listExact   string
	listPrefix  string
	deleteExact string
	deletePrefx string
	err         error
}

func (f *fakeThreads) Create(_ context.Context, t *models.Thread) error {
	if f.err != nil {
		return f.err
	}
	t.ID = uuid.New()
	f.created = append(f.created, t)
	return nil
}

func (f *fakeThreads) GetByID(_ context.Context, id uuid.UUID) (*models.Thread, error) {
	for _, t := range f.created {
		if t.ID == id {
			out := *t
			out.Posts = f.posts[id]
			out.PostsCount = len(out.Posts)
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeThreads) List(_ context.Context, exact, fieldPrefix string, _ models.ThreadType, _ int) ([]*models.Thread, error) {
	f.listExact, f.listPrefix = exact, fieldPrefix
	var out []*models.Thread
	for _, t := range f.created {
		if exact == "" || t.About == exact || (fieldPrefix != "" && strings.HasPrefix(t.About, fieldPrefix)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeThreads) AddPost(_ context.Context, threadID uuid.UUID, p *models.Post) error {
	if f.posts == nil {
		f.posts = map[uuid.UUID][]models.Post{}
	}
	for _, t := range f.created {
		if t.ID == threadID {
			f.posts[threadID] = append(f.posts[threadID], *p)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeThreads) DeleteByAbout(_ context.Context, exact, fieldPrefix string) (int64, error) {
	f.deleteExact, f.deletePrefx = exact, fieldPrefix
	return 2, f.err
}

func TestServiceCreateRejectsInvalidLink(t *testing.T) {
	t.Parallel()
	svc := NewService(&fakeThreads{}, nil)
	_, err := svc.Create(context.Background(), models.CreateThread{About: "PII", Message: "hi"}, "alice")
	if !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("Create() error = %v, want ErrInvalidLink", err)
	}
}

func TestServiceCreateAndReply(t *testing.T) {
	t.Parallel()
	repo := &fakeThreads{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	thread, err := svc.Create(ctx, models.CreateThread{About: "<#E::tag::PII.Email::description>", Message: "  needs work  "}, "alice")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if thread.Message != "needs work" {
		t.Errorf("Message = %q, want trimmed", thread.Message)
	}
	if thread.CreatedBy != "alice" {
		t.Errorf("CreatedBy = %q", thread.CreatedBy)
	}

	got, err := svc.Reply(ctx, thread.ID, models.CreatePost{Message: "agreed"}, "bob")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got.PostsCount != 1 || got.Posts[0].From != "bob" {
		t.Errorf("Reply() posts = %+v", got.Posts)
	}

	if _, err := svc.Reply(ctx, uuid.New(), models.CreatePost{Message: "x"}, "bob"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Reply(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestServiceListScopes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		link       string
		wantExact  string
		wantPrefix string
		wantErr    bool
	}{
		{"everything", "", "", "", false},
		{"whole entity", "<#E::classification::PII>", "<#E::classification::PII>", "<#E::classification::PII::", false},
		{"one field", "<#E::classification::PII::description>", "<#E::classification::PII::description>", "<#E::classification::PII::description::", false},
		{"invalid", "PII", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := &fakeThreads{}
			svc := NewService(repo, nil)
			_, err := svc.List(context.Background(), tt.link, "", 0)
			if tt.wantErr {
				if err == nil {
					t.Fatal("List() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if repo.listExact != tt.wantExact || repo.listPrefix != tt.wantPrefix {
				t.Errorf("List() scope = (%q, %q), want (%q, %q)", repo.listExact, repo.listPrefix, tt.wantExact, tt.wantPrefix)
			}
		})
	}
}

func TestServiceListDoesNotMatchSiblingNames(t *testing.T) {
	t.Parallel()
	repo := &fakeThreads{}
	svc := NewService(repo, nil)
	ctx := context.Background()
	for _, about := range []string{"<#E::classification::PII>", "<#E::classification::PIIX>", "<#E::classification::PII::description>"} {
		if _, err := svc.Create(ctx, models.CreateThread{About: about, Message: "m"}, "alice"); err != nil {
			t.Fatalf("Create(%q) error = %v", about, err)
		}
	}
	threads, err := svc.List(ctx, "<#E::classification::PII>", "", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(threads) != 2 {
		t.Errorf("List() returned %d threads, want 2", len(threads))
	}
}

func TestServiceCleanupEntity(t *testing.T) {
	t.Parallel()
	repo := &fakeThreads{}
	svc := NewService(repo, nil)
	n, err := svc.CleanupEntity(context.Background(), models.ResourceTag, "PII.Email")
	if err != nil {
		t.Fatalf("CleanupEntity() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CleanupEntity() = %d, want 2", n)
	}
	if repo.deleteExact != "<#E::tag::PII.Email>" || repo.deletePrefx != "<#E::tag::PII.Email::" {
		t.Errorf("DeleteByAbout scope = (%q, %q)", repo.deleteExact, repo.deletePrefx)
	}

	repo.err = errors.New("boom")
	if _, err := svc.CleanupEntity(context.Background(), models.ResourceTag, "PII.Email"); err == nil {
		t.Error("CleanupEntity() expected error")
	}
}

func TestServiceCleanupChildren(t *testing.T) {
	t.Parallel()
	repo := &fakeThreads{}
	svc := NewService(repo, nil)
	if _, err := svc.CleanupChildren(context.Background(), "PII"); err != nil {
		t.Fatalf("CleanupChildren() error = %v", err)
	}
	if repo.deleteExact != "" || repo.deletePrefx != "<#E::tag::PII." {
		t.Errorf("DeleteByAbout scope = (%q, %q)", repo.deleteExact, repo.deletePrefx)
	}
}
