package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/tag-catalog/internal/browser"
	"github.com/benvon/tag-catalog/internal/feed"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// ChatPoster posts messages to a chat channel. *slack.Client implements it.
type ChatPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// ThreadReader loads a feed thread
type ThreadReader interface {
	Get(ctx context.Context, threadID uuid.UUID) (*models.Thread, error)
}

// Announcer forwards announcement threads to a Slack channel
type Announcer struct {
	chat    ChatPoster
	channel string
	threads ThreadReader
	baseURL string
	logger  *zap.Logger
}

// NewAnnouncer creates an announcer. A nil chat disables posting; jobs are
// acknowledged and logged.
func NewAnnouncer(chat ChatPoster, channel string, threads ThreadReader, baseURL string, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{
		chat:    chat,
		channel: channel,
		threads: threads,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ProcessAnnounceThreadJob handles queue.JobTypeAnnounceThread
func (a *Announcer) ProcessAnnounceThreadJob(ctx context.Context, job *queue.Job) error {
	if job.ThreadID == nil {
		return Permanent(fmt.Errorf("thread_id is required for %s job", job.Type))
	}
	if a.chat == nil {
		a.logger.Info("announcement_skipped",
			zap.String("thread_id", job.ThreadID.String()),
			zap.String("reason", "chat_not_configured"),
		)
		return nil
	}

	t, err := a.threads.Get(ctx, *job.ThreadID)
	if err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}
	if t.Type != models.ThreadAnnouncement {
		return Permanent(fmt.Errorf("thread %s is a %s, not an announcement", t.ID, t.Type))
	}

	_, ts, err := a.chat.PostMessageContext(ctx, a.channel, a.message(t)...)
	if err != nil {
		return fmt.Errorf("failed to post announcement: %w", err)
	}
	a.logger.Info("announcement_posted",
		zap.String("thread_id", t.ID.String()),
		zap.String("channel", a.channel),
		zap.String("ts", ts),
	)
	return nil
}

// message renders t as a header, the announcement body and a context line
func (a *Announcer) message(t *models.Thread) []slack.MsgOption {
	subject := t.About
	var entityURL string
	if link, err := feed.ParseEntityLink(t.About); err == nil {
		subject = fmt.Sprintf("%s %s", link.EntityType, link.FQN)
		classification := link.FQN
		if link.EntityType == string(models.ResourceTag) {
			classification, _, _ = strings.Cut(link.FQN, ".")
		}
		if a.baseURL != "" {
			entityURL = a.baseURL + browser.ClassificationPath(classification)
		}
	}

	heading := "Announcement: " + subject
	footer := fmt.Sprintf("Posted by %s", t.CreatedBy)
	if entityURL != "" {
		footer += fmt.Sprintf(" | <%s|Open in catalog>", entityURL)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, heading, false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, t.Message, false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, footer, false, false)),
	}
	return []slack.MsgOption{
		slack.MsgOptionText(heading+"\n"+t.Message, false),
		slack.MsgOptionBlocks(blocks...),
	}
}
