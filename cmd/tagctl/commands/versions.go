package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewVersionsCmd creates the command listing an entity's version history
func NewVersionsCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <classification|tag> <id|name>",
		Short: "Show the version history of a classification or tag",
		Long:  "Show the version history of a classification or tag. Tags are named by their fully qualified name, e.g. PII.Email.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resource := models.ResourceEntity(args[0])
			if resource != models.ResourceClassification && resource != models.ResourceTag {
				return fmt.Errorf("unsupported entity type %q", args[0])
			}
			client, cfg, err := g.Client(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), client, resource, args[1])
			if err != nil {
				return err
			}
			h, err := client.ListVersions(cmd.Context(), resource, id)
			if err != nil {
				return fmt.Errorf("list versions: %w", err)
			}
			g.Renderer(cmd.OutOrStdout(), cfg.CatalogURL).History(h)
			return nil
		},
	}
}

// resolveID accepts an entity id or looks the entity up by name
func resolveID(ctx context.Context, svc catalog.Service, resource models.ResourceEntity, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if resource == models.ResourceClassification {
		c, err := svc.GetClassificationByName(ctx, ref, nil)
		if err != nil {
			return uuid.Nil, fmt.Errorf("get classification %s: %w", ref, err)
		}
		return c.ID, nil
	}

	parent, _, ok := strings.Cut(ref, ".")
	if !ok {
		return uuid.Nil, fmt.Errorf("tag %q is not a fully qualified name", ref)
	}
	filter := catalog.TagFilter{Parent: parent, Limit: 100}
	for {
		page, err := svc.ListTags(ctx, filter)
		if err != nil {
			return uuid.Nil, fmt.Errorf("list tags of %s: %w", parent, err)
		}
		for _, t := range page.Data {
			if t.FullyQualifiedName == ref {
				return t.ID, nil
			}
		}
		if page.Paging.After == "" {
			return uuid.Nil, fmt.Errorf("tag %s not found", ref)
		}
		filter.After = page.Paging.After
	}
}
