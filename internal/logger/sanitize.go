package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength caps URL paths in logs
	MaxPathLength = 500
	// MaxFQNLength caps fully qualified names. A tag FQN is two quoted names of at most 256 each.
	MaxFQNLength = 520
	// MaxUserIDLength caps user names and subjects
	MaxUserIDLength = 128
	// MaxErrorMessageLength caps error messages
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the default cap
	MaxGeneralStringLength = 2000
	// MaxDebugContentLength caps prompts and model output logged at debug level
	MaxDebugContentLength = 10000
)

// SanitizePath cleans a request path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString drops control characters other than whitespace, repairs
// invalid UTF-8 and truncates to maxLength bytes. maxLength <= 0 means
// MaxGeneralStringLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if len(s) > maxLength {
		// back off to a rune boundary
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

// SanitizeError cleans an error message for logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeUserID cleans a user name or token subject for logging
func SanitizeUserID(userID string) string {
	return SanitizeString(userID, MaxUserIDLength)
}

// SanitizeDebugContent cleans prompt or model output for debug logging
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}
