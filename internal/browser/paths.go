package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/benvon/tag-catalog/internal/models"
)

const (
	classificationRoute = "/classification/"
	exploreRoute        = "/explore/tables"
)

// ClassificationPath is the addressable path of a classification; "" for no name
func ClassificationPath(name string) string {
	if name == "" {
		return ""
	}
	return classificationRoute + url.PathEscape(name)
}

// ParseClassificationPath extracts the classification name from path
func ParseClassificationPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, classificationRoute)
	if !ok || rest == "" {
		return "", false
	}
	name, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return name, true
}

// RouteName maps the name found in a path to the classification to load.
// Every Tier* path resolves to the Tier classification.
func RouteName(name string) string {
	if strings.HasPrefix(name, models.TierClassification) {
		return models.TierClassification
	}
	return name
}

// UsageLink is the explore path listing the assets tagged with tagFQN
func UsageLink(tagFQN string) string {
	facet := "tags.tagFQN"
	if strings.HasPrefix(tagFQN, models.TierClassification) {
		facet = "tier.tagFQN"
	}
	filter, err := json.Marshal(map[string][]string{facet: {tagFQN}})
	if err != nil {
		return exploreRoute
	}
	return exploreRoute + "?" + url.Values{"facetFilter": {string(filter)}}.Encode()
}

// TabLabel renders a tab heading with an optional count badge; the active tab is bracketed
func TabLabel(name string, count *int, active bool) string {
	label := name
	if count != nil {
		label = fmt.Sprintf("%s (%d)", name, *count)
	}
	if active {
		return "[" + label + "]"
	}
	return label
}
