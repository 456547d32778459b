package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/services/ai"
	"github.com/google/uuid"
)

// fakeMessage records how a delivery was settled
type fakeMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *fakeMessage) Ack() error { m.acked = true; return nil }

func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked, m.requeue = true, requeue
	return nil
}

func (m *fakeMessage) GetJob() *queue.Job { return m.job }

// fakeQueue is an in-memory queue.JobQueue
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []*queue.Job
	err      error

	msgs chan queue.MessageInterface
	errs chan error
}

func (q *fakeQueue) Enqueue(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *fakeQueue) jobs() []*queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*queue.Job(nil), q.enqueued...)
}

func (q *fakeQueue) Consume(context.Context, int) (<-chan queue.MessageInterface, <-chan error, error) {
	return q.msgs, q.errs, nil
}

func (q *fakeQueue) Close() error                      { return nil }
func (q *fakeQueue) HealthCheck(context.Context) error { return nil }

var _ queue.JobQueue = (*fakeQueue)(nil)

type fakeSuggester struct {
	text  string
	err   error
	calls []ai.EntityBrief
}

func (s *fakeSuggester) SuggestDescription(_ context.Context, brief ai.EntityBrief) (string, error) {
	s.calls = append(s.calls, brief)
	return s.text, s.err
}

// catalogStore serves classifications and tags from memory
type catalogStore struct {
	classifications []*models.Classification
	tags            []*models.Tag
	listErr         error
}

func (c *catalogStore) classificationByID(_ context.Context, id uuid.UUID, _ models.Fields) (*models.Classification, error) {
	for _, cl := range c.classifications {
		if cl.ID == id {
			return cl.Clone(), nil
		}
	}
	return nil, database.ErrNotFound
}

func (c *catalogStore) tagByID(_ context.Context, id uuid.UUID, _ models.Fields) (*models.Tag, error) {
	for _, t := range c.tags {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, database.ErrNotFound
}

type classificationStore struct{ *catalogStore }

func (s classificationStore) GetByID(ctx context.Context, id uuid.UUID, f models.Fields) (*models.Classification, error) {
	return s.classificationByID(ctx, id, f)
}

func (s classificationStore) GetByName(_ context.Context, name string, _ models.Fields) (*models.Classification, error) {
	for _, cl := range s.classifications {
		if cl.Name == name {
			return cl.Clone(), nil
		}
	}
	return nil, database.ErrNotFound
}

func (s classificationStore) ListUndescribed(_ context.Context, limit int) ([]*models.Classification, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.Classification
	for _, cl := range s.classifications {
		if cl.Description == "" && len(out) < limit {
			out = append(out, cl)
		}
	}
	return out, nil
}

type tagStore struct{ *catalogStore }

func (s tagStore) GetByID(ctx context.Context, id uuid.UUID, f models.Fields) (*models.Tag, error) {
	return s.tagByID(ctx, id, f)
}

func (s tagStore) ListByParent(_ context.Context, parent string, _ models.Fields, w database.PageWindow) ([]*models.Tag, models.Paging, error) {
	var out []*models.Tag
	for _, t := range s.tags {
		if t.ClassificationName() == parent && len(out) < w.Limit {
			out = append(out, t)
		}
	}
	return out, models.Paging{Total: len(out)}, nil
}

func (s tagStore) ListUndescribed(_ context.Context, limit int) ([]*models.Tag, error) {
	var out []*models.Tag
	for _, t := range s.tags {
		if t.Description == "" && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

// fakeFeed records created threads and cleanup scopes
type fakeFeed struct {
	mu      sync.Mutex
	threads []*models.Thread
	created []models.CreateThread
	cleaned []string
	err     error
}

func (f *fakeFeed) List(_ context.Context, about string, threadType models.ThreadType, _ int) ([]*models.Thread, error) {
	var out []*models.Thread
	for _, t := range f.threads {
		if t.About == about && (threadType == "" || t.Type == threadType) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeFeed) Create(_ context.Context, req models.CreateThread, by string) (*models.Thread, error) {
	f.created = append(f.created, req)
	t := &models.Thread{ID: uuid.New(), About: req.About, Type: req.Type, Message: req.Message, CreatedBy: by}
	f.threads = append(f.threads, t)
	return t, nil
}

func (f *fakeFeed) Get(_ context.Context, id uuid.UUID) (*models.Thread, error) {
	for _, t := range f.threads {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeFeed) CleanupEntity(_ context.Context, entityType models.ResourceEntity, fqn string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, string(entityType)+":"+fqn)
	return 2, f.err
}

func (f *fakeFeed) CleanupChildren(_ context.Context, fqn string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, "children:"+fqn)
	return 3, nil
}

var errBoom = errors.New("boom")
