package label

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	long := strings.Repeat("a", 150)

	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil", nil, DefaultLabel},
		{"non-string", 42, DefaultLabel},
		{"empty", "", DefaultLabel},
		{"blank", " \t\n ", DefaultLabel},
		{"plain", "Wake up", "Wake up"},
		{"collapses inner whitespace", "  Team  \t Sync\n", "Team Sync"},
		{"exactly at bound", strings.Repeat("b", MaxLength), strings.Repeat("b", MaxLength)},
		{"truncated", long, strings.Repeat("a", MaxLength-3) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.raw))
		})
	}
}

func TestSanitize_CountsCharactersNotBytes(t *testing.T) {
	raw := strings.Repeat("é", 120)

	got := Sanitize(raw)

	assert.Equal(t, MaxLength, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSanitize_BoundedAndIdempotent(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"x",
		"  a  b  c  ",
		strings.Repeat("word ", 40),
		strings.Repeat(" ", 99) + "z",
		strings.Repeat("ab ", 33) + "  tail",
		[]byte("bytes are not strings"),
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.NotEmpty(t, once)
		assert.LessOrEqual(t, utf8.RuneCountInString(once), MaxLength)
		assert.Equal(t, once, Sanitize(once), "sanitize must be idempotent for %q", in)
	}
}

func TestText_CustomFallback(t *testing.T) {
	assert.Equal(t, "", Text("   ", "", 50))
	assert.Equal(t, "n/a", Text(nil, "n/a", 50))
	assert.Equal(t, "abcd...", Text("abcdefghij", "", 7))
}
