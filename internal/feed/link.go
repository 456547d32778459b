// Package feed implements activity feed threads about catalog entities.
package feed

import (
	"errors"
	"fmt"
	"strings"
)

const (
	linkPrefix = "<#E::"
	linkSuffix = ">"
	linkSep    = "::"
)

// ErrInvalidLink is returned when an about string is not an entity link
var ErrInvalidLink = errors.New("invalid entity link")

// EntityLink addresses an entity, or one field of it, e.g. <#E::tag::PII.Email::description>
type EntityLink struct {
	EntityType string
	FQN        string
	Field      string
}

// NewEntityLink builds a link to an entity, optionally narrowed to a field
func NewEntityLink(entityType, fqn, field string) EntityLink {
	return EntityLink{EntityType: entityType, FQN: fqn, Field: field}
}

// String renders the link in its wire form
func (l EntityLink) String() string {
	s := linkPrefix + l.EntityType + linkSep + l.FQN
	if l.Field != "" {
		s += linkSep + l.Field
	}
	return s + linkSuffix
}

// Entity drops the field, addressing the whole entity
func (l EntityLink) Entity() EntityLink {
	return EntityLink{EntityType: l.EntityType, FQN: l.FQN}
}

// FieldPrefix is the wire prefix shared by every link to a field of this entity
func (l EntityLink) FieldPrefix() string {
	return linkPrefix + l.EntityType + linkSep + l.FQN + linkSep
}

// ParseEntityLink parses the wire form of an entity link
func ParseEntityLink(s string) (EntityLink, error) {
	if !strings.HasPrefix(s, linkPrefix) || !strings.HasSuffix(s, linkSuffix) {
		return EntityLink{}, fmt.Errorf("%w: %q", ErrInvalidLink, s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, linkPrefix), linkSuffix)
	parts := strings.Split(body, linkSep)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return EntityLink{}, fmt.Errorf("%w: %q", ErrInvalidLink, s)
	}
	link := EntityLink{EntityType: parts[0], FQN: parts[1]}
	if len(parts) > 2 {
		link.Field = strings.Join(parts[2:], linkSep)
	}
	return link, nil
}

// EntityFQN returns the fully qualified name an about string points at,
// or "" when it is not an entity link
func EntityFQN(about string) string {
	link, err := ParseEntityLink(about)
	if err != nil {
		return ""
	}
	return link.FQN
}

// EntityField returns the field an about string points at, or "" for whole-entity links
func EntityField(about string) string {
	link, err := ParseEntityLink(about)
	if err != nil {
		return ""
	}
	return link.Field
}
