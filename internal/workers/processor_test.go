package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/services/ai"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestProcessor(q *fakeQueue, h Handler) *Processor {
	p := NewProcessor(q, nil)
	p.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	p.Handle(queue.JobTypeFeedCleanup, h)
	return p
}

func TestProcessJobSettlesDelivery(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name        string
		job         func() *queue.Job
		handlerErr  error
		wantAck     bool
		wantNack    bool
		wantRequeue bool
		wantErr     bool
		wantCalls   int
		wantQueued  int
		wantRetry   int
	}{
		{
			name:      "success acks",
			job:       func() *queue.Job { return queue.NewJob(queue.JobTypeFeedCleanup) },
			wantAck:   true,
			wantCalls: 1,
		},
		{
			name: "expired job is dropped",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeFeedCleanup)
				j.NotAfter = &past
				return j
			},
			wantAck: true,
		},
		{
			name: "early job is deferred",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeFeedCleanup)
				j.NotBefore = &future
				return j
			},
			wantAck:    true,
			wantQueued: 1,
		},
		{
			name:     "unknown type goes to the DLQ",
			job:      func() *queue.Job { return queue.NewJob(queue.JobTypeAnnounceThread) },
			wantNack: true,
			wantErr:  true,
		},
		{
			name:       "permanent failure goes to the DLQ",
			job:        func() *queue.Job { return queue.NewJob(queue.JobTypeFeedCleanup) },
			handlerErr: Permanent(errBoom),
			wantNack:   true,
			wantErr:    true,
			wantCalls:  1,
		},
		{
			name:       "transient failure schedules a retry",
			job:        func() *queue.Job { return queue.NewJob(queue.JobTypeFeedCleanup) },
			handlerErr: errBoom,
			wantAck:    true,
			wantErr:    true,
			wantCalls:  1,
			wantQueued: 1,
			wantRetry:  1,
		},
		{
			name: "exhausted retries go to the DLQ",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeFeedCleanup)
				j.RetryCount = j.MaxRetries
				return j
			},
			handlerErr: errBoom,
			wantNack:   true,
			wantErr:    true,
			wantCalls:  1,
		},
		{
			name: "quota exhaustion retries past the limit",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeFeedCleanup)
				j.RetryCount = j.MaxRetries
				return j
			},
			handlerErr: fmt.Errorf("suggest: %w", &ai.APIError{StatusCode: 429, IsPermanent: true}),
			wantAck:    true,
			wantErr:    true,
			wantCalls:  1,
			wantQueued: 1,
			wantRetry:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &fakeQueue{}
			calls := 0
			p := newTestProcessor(q, func(context.Context, *queue.Job) error {
				calls++
				return tt.handlerErr
			})
			msg := &fakeMessage{job: tt.job()}

			err := p.ProcessJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acked != tt.wantAck || msg.nacked != tt.wantNack || msg.requeue != tt.wantRequeue {
				t.Errorf("settled ack=%v nack=%v requeue=%v, want %v %v %v",
					msg.acked, msg.nacked, msg.requeue, tt.wantAck, tt.wantNack, tt.wantRequeue)
			}
			if calls != tt.wantCalls {
				t.Errorf("handler called %d times, want %d", calls, tt.wantCalls)
			}
			queued := q.jobs()
			if len(queued) != tt.wantQueued {
				t.Fatalf("enqueued %d jobs, want %d", len(queued), tt.wantQueued)
			}
			if tt.wantRetry > 0 {
				if queued[0].RetryCount != tt.wantRetry || queued[0].NotBefore == nil {
					t.Errorf("retry job = count %d not_before %v", queued[0].RetryCount, queued[0].NotBefore)
				}
				if queued[0].ID != msg.job.ID {
					t.Error("retry changed the job id")
				}
			}
		})
	}
}

func TestProcessJobRetryDelayFollowsErrorClass(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	p := newTestProcessor(q, func(context.Context, *queue.Job) error {
		return &ai.APIError{StatusCode: 429}
	})
	_ = p.ProcessJob(context.Background(), &fakeMessage{job: queue.NewJob(queue.JobTypeFeedCleanup)})

	got := q.jobs()[0].NotBefore.Sub(p.now())
	if got != time.Minute {
		t.Errorf("rate limited retry delay = %v, want 1m", got)
	}
}

func TestProcessJobRequeueFailureNacks(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{err: errors.New("broker down")}
	p := newTestProcessor(q, func(context.Context, *queue.Job) error { return errBoom })
	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeFeedCleanup)}

	if err := p.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected an error")
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("nack=%v requeue=%v, want the delivery returned to the queue", msg.nacked, msg.requeue)
	}
}

func TestProcessorRun(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{msgs: make(chan queue.MessageInterface), errs: make(chan error)}
	core, logs := observer.New(zap.InfoLevel)
	done := make(chan *queue.Job, 1)
	p := NewProcessor(q, zap.New(core))
	p.Handle(queue.JobTypeFeedCleanup, func(_ context.Context, job *queue.Job) error {
		done <- job
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- p.Run(ctx, q, 1) }()

	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeFeedCleanup)}
	q.msgs <- msg
	<-done
	q.errs <- errors.New("channel flow")

	cancel()
	if err := <-result; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !msg.acked {
		t.Error("message was not acked")
	}
	if logs.FilterMessage("queue_error").Len() != 1 {
		t.Error("queue error was not logged")
	}
}

func TestProcessorRunReportsClosedChannel(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{msgs: make(chan queue.MessageInterface), errs: make(chan error)}
	close(q.msgs)

	if err := NewProcessor(q, nil).Run(context.Background(), q, 1); !errors.Is(err, ErrConsumerClosed) {
		t.Errorf("Run() error = %v, want ErrConsumerClosed", err)
	}
}
