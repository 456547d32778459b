package logger

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "empty", in: "", max: 10, want: ""},
		{name: "plain", in: "PII.Email", max: 0, want: "PII.Email"},
		{name: "control characters", in: "PII\x1b[31m.Email\x00", max: 0, want: "PII[31m.Email"},
		{name: "keeps whitespace", in: "a\tb\nc", max: 0, want: "a\tb\nc"},
		{name: "invalid utf8", in: "ab\xffc", max: 0, want: "abc"},
		{name: "truncates", in: "abcdef", max: 3, want: "abc..."},
		{name: "truncates on rune boundary", in: "aéb", max: 2, want: "a..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSanitizeHelpers(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q", got)
	}
	long := errors.New(strings.Repeat("x", MaxErrorMessageLength+10))
	if got := SanitizeError(long); len(got) != MaxErrorMessageLength+3 {
		t.Errorf("SanitizeError() length = %d", len(got))
	}
	if got := SanitizePath("/api/v1/tags/\x07PII"); got != "/api/v1/tags/PII" {
		t.Errorf("SanitizePath() = %q", got)
	}
	if got := SanitizeUserID(strings.Repeat("u", 200)); len(got) != MaxUserIDLength+3 {
		t.Errorf("SanitizeUserID() length = %d", len(got))
	}
}

func TestEntityField(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	zap.New(core).Info("tag_updated", Entity("tag", "PII.Email\x00"))

	entries := logs.FilterMessage("tag_updated").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got, ok := entries[0].ContextMap()["entity"].(map[string]any)
	if !ok {
		t.Fatalf("entity field = %#v", entries[0].ContextMap()["entity"])
	}
	if got["type"] != "tag" || got["fqn"] != "PII.Email" {
		t.Errorf("entity field = %v", got)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, opts := range []Options{{Service: "tag-catalog"}, {Debug: true, Console: true}} {
		l, err := New(opts)
		if err != nil {
			t.Fatalf("New(%+v) error = %v", opts, err)
		}
		if got := l.Core().Enabled(zap.DebugLevel); got != opts.Debug {
			t.Errorf("New(%+v) debug enabled = %v", opts, got)
		}
		_ = Sync(l)
	}
	if err := Sync(nil); err != nil {
		t.Errorf("Sync(nil) = %v", err)
	}
}
