package models

import (
	"sort"
	"strings"
)

// Optional fields a list or get request may ask the catalog to join
const (
	FieldTermCount  = "termCount"
	FieldUsageCount = "usageCount"
	FieldDisabled   = "disabled"
)

// Fields is a set of requested optional fields
type Fields map[string]bool

// ParseFields parses a comma-separated fields query parameter
func ParseFields(raw string) Fields {
	f := Fields{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			f[p] = true
		}
	}
	return f
}

// NewFields builds a field set from names
func NewFields(names ...string) Fields {
	f := Fields{}
	for _, n := range names {
		f[n] = true
	}
	return f
}

// Has reports whether name was requested
func (f Fields) Has(name string) bool {
	return f[name]
}

// String renders the set as a sorted comma-separated list
func (f Fields) String() string {
	names := make([]string, 0, len(f))
	for n, ok := range f {
		if ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
