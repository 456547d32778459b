package database

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidCursor is returned for paging cursors this catalog did not issue
var ErrInvalidCursor = errors.New("invalid paging cursor")

// EncodeCursor turns a sort key into an opaque paging cursor
func EncodeCursor(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor reverses EncodeCursor
func DecodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return string(b), nil
}

// PageWindow describes a cursor page request
type PageWindow struct {
	Limit  int
	Before string
	After  string
}

// pageCursors computes the before/after cursors for a page of sort keys in
// ascending order. more reports whether the query found rows past the page
// in the direction it scanned.
func pageCursors(w PageWindow, keys []string, more bool) (before, after string) {
	if len(keys) == 0 {
		return "", ""
	}
	first := EncodeCursor(keys[0])
	last := EncodeCursor(keys[len(keys)-1])
	switch {
	case w.Before != "":
		after = last
		if more {
			before = first
		}
	case w.After != "":
		before = first
		if more {
			after = last
		}
	default:
		if more {
			after = last
		}
	}
	return before, after
}
