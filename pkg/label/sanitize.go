// Package label normalizes untrusted free text into bounded display strings.
// The server pipeline and the client renderer both go through Sanitize so the
// same raw input always produces the same visible title.
package label

import (
	"strings"
	"unicode"
)

const (
	// DefaultLabel is shown whenever the input carries nothing displayable.
	DefaultLabel = "Alarm"
	// MaxLength is the display bound, counted in characters (runes).
	MaxLength = 100

	ellipsis = "..."
)

// Sanitize returns a non-empty title of at most MaxLength characters.
func Sanitize(raw any) string {
	return Text(raw, DefaultLabel, MaxLength)
}

// Text is Sanitize with a caller-chosen fallback and bound. A non-string
// input, or one that is blank after normalization, yields fallback.
func Text(raw any, fallback string, max int) string {
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}

	s = strings.TrimSpace(collapseSpaces(s))

	if max > len(ellipsis) {
		if runes := []rune(s); len(runes) > max {
			s = string(runes[:max-len(ellipsis)]) + ellipsis
		}
	}

	if s == "" {
		return fallback
	}
	return s
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
