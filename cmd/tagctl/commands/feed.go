package commands

import (
	"fmt"
	"strings"

	"github.com/benvon/tag-catalog/internal/feed"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewFeedCmd creates the activity feed commands
func NewFeedCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Read and reply to activity feed threads",
	}
	cmd.AddCommand(newFeedListCmd(g), newFeedShowCmd(g), newFeedReplyCmd(g), newFeedCreateCmd(g))
	return cmd
}

func newFeedListCmd(g *Globals) *cobra.Command {
	var (
		entity     string
		field      string
		threadType string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads, optionally about one entity",
		Long:  "List threads. --entity takes <type>:<fqn>, e.g. tag:PII.Email or classification:PII.",
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := entityLink(entity, field)
			if err != nil {
				return err
			}
			tt, err := parseThreadType(threadType)
			if err != nil {
				return err
			}
			client, cfg, err := g.Client(cmd.Context())
			if err != nil {
				return err
			}
			threads, err := client.ListThreads(cmd.Context(), link, tt)
			if err != nil {
				return fmt.Errorf("list threads: %w", err)
			}
			g.Renderer(cmd.OutOrStdout(), cfg.CatalogURL).Threads(threads)
			return nil
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Entity as <type>:<fqn>")
	cmd.Flags().StringVar(&field, "field", "", "Narrow to one field of the entity, e.g. description")
	cmd.Flags().StringVar(&threadType, "type", "", "Conversation, Task or Announcement")
	return cmd
}

func newFeedShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show a thread and its posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid thread id: %w", err)
			}
			client, cfg, err := g.Client(cmd.Context())
			if err != nil {
				return err
			}
			t, err := client.GetThread(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get thread: %w", err)
			}
			g.Renderer(cmd.OutOrStdout(), cfg.CatalogURL).Thread(t)
			return nil
		},
	}
}

func newFeedReplyCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reply <thread-id> <message>",
		Short: "Reply to a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid thread id: %w", err)
			}
			client, cfg, err := g.Client(cmd.Context())
			if err != nil {
				return err
			}
			t, err := client.Reply(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("reply: %w", err)
			}
			g.Renderer(cmd.OutOrStdout(), cfg.CatalogURL).Thread(t)
			return nil
		},
	}
}

func newFeedCreateCmd(g *Globals) *cobra.Command {
	var (
		entity     string
		field      string
		threadType string
	)
	cmd := &cobra.Command{
		Use:   "create <message>",
		Short: "Open a thread about an entity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if entity == "" {
				return fmt.Errorf("--entity is required")
			}
			link, err := entityLink(entity, field)
			if err != nil {
				return err
			}
			tt, err := parseThreadType(threadType)
			if err != nil {
				return err
			}
			client, cfg, err := g.Client(cmd.Context())
			if err != nil {
				return err
			}
			t, err := client.CreateThread(cmd.Context(), models.CreateThread{
				About:   link,
				Message: strings.Join(args, " "),
				Type:    tt,
			})
			if err != nil {
				return fmt.Errorf("create thread: %w", err)
			}
			g.Renderer(cmd.OutOrStdout(), cfg.CatalogURL).Thread(t)
			return nil
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Entity as <type>:<fqn> (required)")
	cmd.Flags().StringVar(&field, "field", "", "Narrow to one field of the entity")
	cmd.Flags().StringVar(&threadType, "type", "", "Conversation, Task or Announcement")
	return cmd
}

// entityLink turns <type>:<fqn> into the wire form of an entity link. Empty input means no filter.
func entityLink(entity, field string) (string, error) {
	if entity == "" {
		if field != "" {
			return "", fmt.Errorf("--field needs --entity")
		}
		return "", nil
	}
	kind, fqn, ok := strings.Cut(entity, ":")
	if !ok || kind == "" || fqn == "" {
		return "", fmt.Errorf("invalid entity %q, want <type>:<fqn>", entity)
	}
	switch models.ResourceEntity(kind) {
	case models.ResourceClassification, models.ResourceTag:
	default:
		return "", fmt.Errorf("unsupported entity type %q", kind)
	}
	return feed.NewEntityLink(kind, fqn, field).String(), nil
}

func parseThreadType(raw string) (models.ThreadType, error) {
	if raw == "" {
		return "", nil
	}
	for _, t := range []models.ThreadType{models.ThreadConversation, models.ThreadTask, models.ThreadAnnouncement} {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown thread type %q", raw)
}
