package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/services/ai"
	"github.com/benvon/tag-catalog/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrConsumerClosed is returned by Run when the broker closes the delivery channel
var ErrConsumerClosed = errors.New("message channel closed")

// Handler processes one job
type Handler func(ctx context.Context, job *queue.Job) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the job goes straight to the DLQ
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Processor routes jobs to handlers and owns acking, retries and delays
type Processor struct {
	handlers map[queue.JobType]Handler
	requeue  queue.Enqueuer
	logger   *zap.Logger
	now      func() time.Time
}

// NewProcessor creates a processor that re-enqueues delayed retries on requeue
func NewProcessor(requeue queue.Enqueuer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		handlers: make(map[queue.JobType]Handler),
		requeue:  requeue,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle registers the handler for a job type
func (p *Processor) Handle(jobType queue.JobType, h Handler) {
	p.handlers[jobType] = h
}

// Run consumes jobs until ctx is cancelled or the broker closes the channel
func (p *Processor) Run(ctx context.Context, jobs queue.JobQueue, prefetch int) error {
	msgs, errs, err := jobs.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-msgs:
				if !ok {
					if ctx.Err() != nil {
						return nil
					}
					return ErrConsumerClosed
				}
				if err := p.ProcessJob(gctx, msg); err != nil {
					job := msg.GetJob()
					p.logger.Error("job_failed",
						zap.Error(err),
						zap.String("job_id", job.ID.String()),
						zap.String("job_type", string(job.Type)),
					)
				}
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err, ok := <-errs:
				if !ok {
					return nil
				}
				p.logger.Error("queue_error", zap.Error(err))
			}
		}
	})
	return g.Wait()
}

// ProcessJob runs the handler for msg's job and settles the delivery
func (p *Processor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		p.logger.Info("job_expired",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		return p.ack(msg)
	}
	if !job.ShouldProcess() {
		// Delivered early, the broker has no delay support
		if err := p.requeue.Enqueue(ctx, job); err != nil {
			p.nack(msg, true)
			return fmt.Errorf("failed to defer job: %w", err)
		}
		p.logger.Debug("job_deferred",
			zap.String("job_id", job.ID.String()),
			zap.Timep("not_before", job.NotBefore),
		)
		return p.ack(msg)
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		p.nack(msg, false)
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	spanCtx, span := telemetry.StartJobSpan(ctx, string(job.Type), job.ID.String(), job.RetryCount)
	err := h(spanCtx, job)
	telemetry.EndSpan(span, err)
	if err != nil {
		return p.handleJobError(ctx, msg, job, err)
	}
	return p.ack(msg)
}

// handleJobError schedules a delayed retry or dead-letters the job
func (p *Processor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	if IsPermanent(err) {
		p.logger.Warn("job_rejected", fields...)
		p.nack(msg, false)
		return fmt.Errorf("job rejected: %w", err)
	}

	// Redelivery would replay the stored body, so retries go back through
	// the queue with the counter bumped and a backoff delay.
	if ai.IsQuotaError(err) || job.CanRetry() {
		delay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := p.now().Add(delay)
		retry := *job
		retry.NotBefore = &notBefore
		retry.IncrementRetry()

		if enqueueErr := p.requeue.Enqueue(ctx, &retry); enqueueErr != nil {
			p.nack(msg, true)
			return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
		}
		p.logger.Warn("job_retry_scheduled", append(fields,
			zap.Bool("throttled", ai.IsRateLimitError(err) || ai.IsQuotaError(err)),
			zap.Duration("retry_in", delay),
		)...)
		if ackErr := p.ack(msg); ackErr != nil {
			return ackErr
		}
		return fmt.Errorf("job failed (retry scheduled): %w", err)
	}

	p.logger.Error("job_dead_lettered", fields...)
	p.nack(msg, false)
	return fmt.Errorf("job failed (max retries): %w", err)
}

func (p *Processor) ack(msg queue.MessageInterface) error {
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func (p *Processor) nack(msg queue.MessageInterface, requeue bool) {
	if err := msg.Nack(requeue); err != nil {
		p.logger.Warn("job_nack_failed", zap.Bool("requeue", requeue), zap.Error(err))
	}
}
