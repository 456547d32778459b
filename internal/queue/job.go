package queue

import (
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeSuggestDescription drafts a description for an entity that has none
	JobTypeSuggestDescription JobType = "suggest_description"
	// JobTypeFeedCleanup removes feed threads about a deleted entity and its children
	JobTypeFeedCleanup JobType = "feed_cleanup"
	// JobTypeAnnounceThread forwards an announcement thread to chat
	JobTypeAnnounceThread JobType = "announce_thread"
)

// Job represents a job in the queue
type Job struct {
	ID          uuid.UUID             `json:"id"`
	Type        JobType               `json:"type"`
	EntityType  models.ResourceEntity `json:"entity_type,omitempty"`
	EntityID    uuid.UUID             `json:"entity_id,omitempty"`
	EntityFQN   string                `json:"entity_fqn,omitempty"`
	ThreadID    *uuid.UUID            `json:"thread_id,omitempty"`
	RequestedBy string                `json:"requested_by,omitempty"`
	NotBefore   *time.Time            `json:"not_before,omitempty"` // nil = immediate
	NotAfter    *time.Time            `json:"not_after,omitempty"`  // nil = no expiration
	Metadata    map[string]any        `json:"metadata,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	RetryCount  int                   `json:"retry_count"`
	MaxRetries  int                   `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// NewSuggestDescriptionJob asks the worker to draft a description for an entity
func NewSuggestDescriptionJob(entityType models.ResourceEntity, id uuid.UUID, fqn string) *Job {
	job := NewJob(JobTypeSuggestDescription)
	job.EntityType = entityType
	job.EntityID = id
	job.EntityFQN = fqn
	return job
}

// NewFeedCleanupJob asks the worker to drop feed threads about a deleted entity
func NewFeedCleanupJob(entityType models.ResourceEntity, id uuid.UUID, fqn, requestedBy string) *Job {
	job := NewJob(JobTypeFeedCleanup)
	job.EntityType = entityType
	job.EntityID = id
	job.EntityFQN = fqn
	job.RequestedBy = requestedBy
	return job
}

// NewAnnounceThreadJob asks the worker to forward an announcement
func NewAnnounceThreadJob(threadID uuid.UUID) *Job {
	job := NewJob(JobTypeAnnounceThread)
	job.ThreadID = &threadID
	return job
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
