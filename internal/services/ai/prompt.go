package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/tag-catalog/internal/models"
)

// MaxSiblingsInPrompt bounds how many sibling tag names a prompt lists
const MaxSiblingsInPrompt = 25

// ErrEmptyDescription is returned when a provider answers without a description
var ErrEmptyDescription = errors.New("provider returned an empty description")

const systemPrompt = "You write short, factual descriptions for entries in a data catalog. " +
	"Descriptions are one or two sentences of markdown, never mention that they were generated, " +
	`and do not repeat the entry name verbatim as the first word. Respond with valid JSON only: {"description": "..."}`

func buildDescriptionPrompt(b EntityBrief) string {
	var sb strings.Builder
	switch b.Kind {
	case models.ResourceTag:
		fmt.Fprintf(&sb, "Describe the tag %q (fully qualified name %q).\n", b.Name, b.FQN)
		if b.Classification != "" {
			fmt.Fprintf(&sb, "It belongs to the classification %q.\n", b.Classification)
		}
		if b.ClassificationDescription != "" {
			fmt.Fprintf(&sb, "The classification is described as: %s\n", SanitizePrompt(b.ClassificationDescription, false))
		}
	default:
		fmt.Fprintf(&sb, "Describe the classification %q, a group of related tags.\n", b.Name)
	}
	if b.DisplayName != "" && b.DisplayName != b.Name {
		fmt.Fprintf(&sb, "Its display name is %q.\n", b.DisplayName)
	}

	siblings := b.Siblings
	if len(siblings) > MaxSiblingsInPrompt {
		siblings = siblings[:MaxSiblingsInPrompt]
	}
	if len(siblings) > 0 {
		label := "Other tags in the same classification"
		if b.Kind == models.ResourceClassification {
			label = "Tags it contains"
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, strings.Join(siblings, ", "))
	}
	return sb.String()
}

// parseDescriptionResponse reads {"description": ...}, tolerating prose
// around the JSON object
func parseDescriptionResponse(content string) (string, error) {
	var out struct {
		Description string `json:"description"`
	}
	raw := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return "", fmt.Errorf("failed to parse description response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
			return "", fmt.Errorf("failed to parse description response: %w", err)
		}
	}
	desc := strings.TrimSpace(out.Description)
	if desc == "" {
		return "", ErrEmptyDescription
	}
	return desc, nil
}
