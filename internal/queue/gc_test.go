package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type purgerFunc func(ctx context.Context, retention time.Duration) (int, error)

func (f purgerFunc) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	return f(ctx, retention)
}

func TestGarbageCollectorCollect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     DLQPurger
		wantN      int
		wantErr    bool
		wantLogged bool
	}{
		{name: "no purger"},
		{
			name: "purges",
			purger: purgerFunc(func(_ context.Context, retention time.Duration) (int, error) {
				if retention != 24*time.Hour {
					return 0, errors.New("unexpected retention")
				}
				return 3, nil
			}),
			wantN:      3,
			wantLogged: true,
		},
		{
			name:   "nothing to purge",
			purger: purgerFunc(func(context.Context, time.Duration) (int, error) { return 0, nil }),
		},
		{
			name:    "broker error",
			purger:  purgerFunc(func(context.Context, time.Duration) (int, error) { return 1, errors.New("channel closed") }),
			wantN:   1,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			core, logs := observer.New(zap.InfoLevel)
			gc := NewGarbageCollector(tt.purger, time.Minute, 24*time.Hour, zap.New(core))

			n, err := gc.Collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantN {
				t.Errorf("Collect() = %d, want %d", n, tt.wantN)
			}
			if got := logs.FilterMessage("dlq_gc_purged").Len() == 1; got != tt.wantLogged {
				t.Errorf("dlq_gc_purged logged = %v, want %v", got, tt.wantLogged)
			}
		})
	}
}

func TestGarbageCollectorStartPurgesImmediately(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var passes atomic.Int32
	purger := purgerFunc(func(context.Context, time.Duration) (int, error) {
		passes.Add(1)
		cancel()
		return 0, nil
	})
	gc := NewGarbageCollector(purger, 24*time.Hour, time.Hour, nil)

	if err := gc.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
	if passes.Load() != 1 {
		t.Errorf("passes = %d, want 1", passes.Load())
	}
}

func TestGarbageCollectorPassHasDeadline(t *testing.T) {
	t.Parallel()

	purger := purgerFunc(func(ctx context.Context, _ time.Duration) (int, error) {
		if _, ok := ctx.Deadline(); !ok {
			return 0, errors.New("no deadline")
		}
		return 0, nil
	})
	if _, err := NewGarbageCollector(purger, time.Minute, time.Hour, nil).Collect(context.Background()); err != nil {
		t.Errorf("Collect() error = %v", err)
	}
}
