package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultListLimit caps thread listings when the caller gives no limit
const DefaultListLimit = 50

// Service opens, lists and answers threads
type Service struct {
	threads database.ThreadRepositoryInterface
	logger  *zap.Logger
}

// NewService creates a feed service
func NewService(threads database.ThreadRepositoryInterface, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{threads: threads, logger: logger}
}

// Create opens a thread about the entity named in req.About
func (s *Service) Create(ctx context.Context, req models.CreateThread, createdBy string) (*models.Thread, error) {
	if _, err := ParseEntityLink(req.About); err != nil {
		return nil, err
	}
	t := &models.Thread{
		Type:      req.Type,
		About:     req.About,
		Message:   strings.TrimSpace(req.Message),
		CreatedBy: createdBy,
	}
	if err := s.threads.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("feed_thread_created",
		zap.String("thread_id", t.ID.String()),
		zap.String("about", t.About),
		zap.String("type", string(t.Type)),
	)
	return t, nil
}

// Reply appends a post and returns the thread with all posts
func (s *Service) Reply(ctx context.Context, threadID uuid.UUID, req models.CreatePost, from string) (*models.Thread, error) {
	post := &models.Post{Message: strings.TrimSpace(req.Message), From: from}
	if err := s.threads.AddPost(ctx, threadID, post); err != nil {
		return nil, err
	}
	return s.threads.GetByID(ctx, threadID)
}

// Get returns one thread with its posts
func (s *Service) Get(ctx context.Context, threadID uuid.UUID) (*models.Thread, error) {
	return s.threads.GetByID(ctx, threadID)
}

// List returns threads about entityLink, newest first. A whole-entity link also
// matches threads about its fields; an empty link lists everything.
func (s *Service) List(ctx context.Context, entityLink string, threadType models.ThreadType, limit int) ([]*models.Thread, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if entityLink == "" {
		return s.threads.List(ctx, "", "", threadType, limit)
	}
	link, err := ParseEntityLink(entityLink)
	if err != nil {
		return nil, err
	}
	fieldPrefix := link.FieldPrefix()
	if link.Field != "" {
		fieldPrefix = strings.TrimSuffix(link.String(), linkSuffix) + linkSep
	}
	return s.threads.List(ctx, link.String(), fieldPrefix, threadType, limit)
}

// CleanupEntity removes every thread about a deleted entity and its fields
func (s *Service) CleanupEntity(ctx context.Context, entityType models.ResourceEntity, fqn string) (int64, error) {
	link := NewEntityLink(string(entityType), fqn, "")
	n, err := s.threads.DeleteByAbout(ctx, link.String(), link.FieldPrefix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up feed for %s: %w", link, err)
	}
	s.logger.Info("feed_threads_deleted",
		zap.String("about", link.String()),
		zap.Int64("count", n),
	)
	return n, nil
}

// CleanupChildren removes threads about the tags of a deleted classification
func (s *Service) CleanupChildren(ctx context.Context, classificationFQN string) (int64, error) {
	prefix := linkPrefix + string(models.ResourceTag) + linkSep + classificationFQN + "."
	n, err := s.threads.DeleteByAbout(ctx, "", prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up tag feeds under %s: %w", classificationFQN, err)
	}
	s.logger.Info("feed_threads_deleted",
		zap.String("about_prefix", prefix),
		zap.Int64("count", n),
	)
	return n, nil
}
