package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSweepBatch caps how many entities of each kind one sweep enqueues
	DefaultSweepBatch = 100
	// SweepJobTTL is how long a sweep's jobs stay valid before the queue drops them
	SweepJobTTL = 24 * time.Hour
)

// UndescribedClassifications lists classifications with a blank description
type UndescribedClassifications interface {
	ListUndescribed(ctx context.Context, limit int) ([]*models.Classification, error)
}

// UndescribedTags lists tags with a blank description
type UndescribedTags interface {
	ListUndescribed(ctx context.Context, limit int) ([]*models.Tag, error)
}

// Sweep periodically enqueues description suggestions for undescribed entities
type Sweep struct {
	classifications UndescribedClassifications
	tags            UndescribedTags
	jobs            queue.Enqueuer
	batch           int
	logger          *zap.Logger
}

// NewSweep creates a sweep. batch <= 0 uses DefaultSweepBatch.
func NewSweep(classifications UndescribedClassifications, tags UndescribedTags, jobs queue.Enqueuer, batch int, logger *zap.Logger) *Sweep {
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweep{classifications: classifications, tags: tags, jobs: jobs, batch: batch, logger: logger}
}

// ParseSchedule parses a five-field cron spec or a descriptor such as @hourly
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Start runs the sweep on spec until ctx is cancelled. Overlapping runs are skipped.
func (s *Sweep) Start(ctx context.Context, spec string) error {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return err
	}

	log := cronLogger{s.logger.Sugar()}
	c := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.Run(ctx); err != nil {
			s.logger.Error("description_sweep_failed", zap.Error(err))
		}
	}))

	s.logger.Info("description_sweep_scheduled",
		zap.String("schedule", spec),
		zap.Time("next_run", sched.Next(time.Now())),
	)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Run performs one sweep and returns how many jobs it enqueued
func (s *Sweep) Run(ctx context.Context) (int, error) {
	var (
		classifications []*models.Classification
		tags            []*models.Tag
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classifications, err = s.classifications.ListUndescribed(gctx, s.batch)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.tags.ListUndescribed(gctx, s.batch)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to list undescribed entities: %w", err)
	}

	notAfter := time.Now().Add(SweepJobTTL)
	jobs := make([]*queue.Job, 0, len(classifications)+len(tags))
	for _, c := range classifications {
		jobs = append(jobs, queue.NewSuggestDescriptionJob(models.ResourceClassification, c.ID, c.FullyQualifiedName))
	}
	for _, t := range tags {
		jobs = append(jobs, queue.NewSuggestDescriptionJob(models.ResourceTag, t.ID, t.FullyQualifiedName))
	}

	enqueued := 0
	for _, job := range jobs {
		job.NotAfter = &notAfter
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			s.logger.Warn("description_sweep_enqueue_failed",
				zap.String("entity_fqn", job.EntityFQN),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}

	s.logger.Info("description_sweep_completed",
		zap.Int("classifications", len(classifications)),
		zap.Int("tags", len(tags)),
		zap.Int("enqueued", enqueued),
	)
	return enqueued, nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}
