package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/feed"
	logpkg "github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SuggestionAuthor is recorded as the creator of suggestion threads
const SuggestionAuthor = "description-bot"

// ClassificationReader loads classifications for the describer
type ClassificationReader interface {
	GetByID(ctx context.Context, id uuid.UUID, fields models.Fields) (*models.Classification, error)
	GetByName(ctx context.Context, name string, fields models.Fields) (*models.Classification, error)
}

// TagReader loads tags for the describer
type TagReader interface {
	GetByID(ctx context.Context, id uuid.UUID, fields models.Fields) (*models.Tag, error)
	ListByParent(ctx context.Context, parent string, fields models.Fields, w database.PageWindow) ([]*models.Tag, models.Paging, error)
}

// SuggestionFeed is where drafted descriptions are proposed
type SuggestionFeed interface {
	List(ctx context.Context, entityLink string, threadType models.ThreadType, limit int) ([]*models.Thread, error)
	Create(ctx context.Context, req models.CreateThread, createdBy string) (*models.Thread, error)
}

// Describer drafts descriptions for undescribed entities and proposes them as
// Task threads on the entity's description field. It never writes the
// description itself.
type Describer struct {
	suggester       ai.DescriptionSuggester
	classifications ClassificationReader
	tags            TagReader
	feed            SuggestionFeed
	logger          *zap.Logger
}

// NewDescriber creates a describer
func NewDescriber(suggester ai.DescriptionSuggester, classifications ClassificationReader, tags TagReader, feed SuggestionFeed, logger *zap.Logger) *Describer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Describer{
		suggester:       suggester,
		classifications: classifications,
		tags:            tags,
		feed:            feed,
		logger:          logger,
	}
}

// ProcessSuggestDescriptionJob handles queue.JobTypeSuggestDescription
func (d *Describer) ProcessSuggestDescriptionJob(ctx context.Context, job *queue.Job) error {
	if job.EntityID == uuid.Nil {
		return Permanent(fmt.Errorf("entity_id is required for %s job", job.Type))
	}

	brief, description, err := d.load(ctx, job.EntityType, job.EntityID)
	if errors.Is(err, database.ErrNotFound) {
		d.skip(job, "entity_deleted")
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(description) != "" {
		d.skip(job, "already_described")
		return nil
	}

	about := feed.NewEntityLink(string(brief.Kind), brief.FQN, "description").String()
	open, err := d.feed.List(ctx, about, models.ThreadTask, feed.DefaultListLimit)
	if err != nil {
		return fmt.Errorf("failed to list suggestion threads: %w", err)
	}
	for _, t := range open {
		if t.About == about && t.CreatedBy == SuggestionAuthor && !t.Resolved {
			d.skip(job, "suggestion_pending")
			return nil
		}
	}

	ctx = ai.WithJob(ai.WithEntity(ctx, job.EntityID.String()), job.ID.String())
	text, err := d.suggester.SuggestDescription(ctx, brief)
	if err != nil {
		return err
	}

	thread, err := d.feed.Create(ctx, models.CreateThread{
		About:   about,
		Type:    models.ThreadTask,
		Message: "Suggested description:\n\n" + text,
	}, SuggestionAuthor)
	if err != nil {
		return fmt.Errorf("failed to open suggestion thread: %w", err)
	}

	d.logger.Info("description_suggested",
		zap.String("job_id", job.ID.String()),
		logpkg.Entity(string(brief.Kind), brief.FQN),
		zap.String("thread_id", thread.ID.String()),
	)
	return nil
}

// load returns the prompt brief for an entity and its current description
func (d *Describer) load(ctx context.Context, kind models.ResourceEntity, id uuid.UUID) (ai.EntityBrief, string, error) {
	switch kind {
	case models.ResourceClassification:
		c, err := d.classifications.GetByID(ctx, id, nil)
		if err != nil {
			return ai.EntityBrief{}, "", err
		}
		brief := ai.EntityBrief{Kind: kind, Name: c.Name, FQN: c.FullyQualifiedName, DisplayName: c.DisplayName}
		brief.Siblings, err = d.tagNames(ctx, c.Name, uuid.Nil)
		return brief, c.Description, err

	case models.ResourceTag:
		t, err := d.tags.GetByID(ctx, id, nil)
		if err != nil {
			return ai.EntityBrief{}, "", err
		}
		brief := ai.EntityBrief{
			Kind:           kind,
			Name:           t.Name,
			FQN:            t.FullyQualifiedName,
			DisplayName:    t.DisplayName,
			Classification: t.ClassificationName(),
		}
		if parent, err := d.classifications.GetByName(ctx, brief.Classification, nil); err == nil {
			brief.ClassificationDescription = parent.Description
		} else if !errors.Is(err, database.ErrNotFound) {
			return ai.EntityBrief{}, "", err
		}
		brief.Siblings, err = d.tagNames(ctx, brief.Classification, t.ID)
		return brief, t.Description, err

	default:
		return ai.EntityBrief{}, "", Permanent(fmt.Errorf("cannot describe entity type %q", kind))
	}
}

// tagNames lists the first tags of a classification, leaving out skip
func (d *Describer) tagNames(ctx context.Context, parent string, skip uuid.UUID) ([]string, error) {
	tags, _, err := d.tags.ListByParent(ctx, parent, nil, database.PageWindow{Limit: ai.MaxSiblingsInPrompt + 1})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", parent, err)
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.ID != skip {
			names = append(names, t.Name)
		}
	}
	return names, nil
}

func (d *Describer) skip(job *queue.Job, reason string) {
	d.logger.Info("suggest_description_skipped",
		zap.String("job_id", job.ID.String()),
		zap.String("entity_id", job.EntityID.String()),
		zap.String("reason", reason),
	)
}
