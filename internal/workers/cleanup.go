package workers

import (
	"context"
	"fmt"

	logpkg "github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FeedJanitor deletes threads about entities that no longer exist
type FeedJanitor interface {
	CleanupEntity(ctx context.Context, entityType models.ResourceEntity, fqn string) (int64, error)
	CleanupChildren(ctx context.Context, classificationFQN string) (int64, error)
}

// FeedCleaner drops activity feed threads after deletes
type FeedCleaner struct {
	feed   FeedJanitor
	logger *zap.Logger
}

// NewFeedCleaner creates a feed cleaner
func NewFeedCleaner(feed FeedJanitor, logger *zap.Logger) *FeedCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedCleaner{feed: feed, logger: logger}
}

// ProcessFeedCleanupJob handles queue.JobTypeFeedCleanup. Deleting a
// classification also removes the threads about its tags.
func (c *FeedCleaner) ProcessFeedCleanupJob(ctx context.Context, job *queue.Job) error {
	if job.EntityFQN == "" {
		return Permanent(fmt.Errorf("entity_fqn is required for %s job", job.Type))
	}
	switch job.EntityType {
	case models.ResourceClassification, models.ResourceTag:
	default:
		return Permanent(fmt.Errorf("cannot clean up feed for entity type %q", job.EntityType))
	}

	var own, children int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.feed.CleanupEntity(gctx, job.EntityType, job.EntityFQN)
		own = n
		return err
	})
	if job.EntityType == models.ResourceClassification {
		g.Go(func() error {
			n, err := c.feed.CleanupChildren(gctx, job.EntityFQN)
			children = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("feed_cleanup_completed",
		zap.String("job_id", job.ID.String()),
		logpkg.Entity(string(job.EntityType), job.EntityFQN),
		zap.String("requested_by", job.RequestedBy),
		zap.Int64("threads_deleted", own+children),
	)
	return nil
}
