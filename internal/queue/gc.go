package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// dlqPassTimeout bounds one purge pass so a large dead-letter backlog cannot stall shutdown
const dlqPassTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered jobs older than a retention window.
// Failed description suggestions and feed cleanups stay inspectable for that
// long and are then discarded.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector purges every interval. A nil purger makes every pass a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start runs one pass immediately and then one per interval until ctx is done
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		if _, err := gc.Collect(ctx); err != nil && ctx.Err() == nil {
			gc.logger.Error("dlq_gc_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Collect runs one purge pass and reports how many jobs were dropped
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, dlqPassTimeout)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return n, fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.logger.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return n, nil
}
