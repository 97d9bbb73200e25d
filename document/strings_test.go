package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBareString(t *testing.T) {
	bare := []string{"node", "foo-bar", "_under", "?", "+", "-", "a1", "日本語", "with.dots", "-a"}
	for _, s := range bare {
		assert.True(t, IsBareString(s), "%q should be bare", s)
	}
	quoted := []string{
		"", "has space", "12", "-12", "+1", "1abc", ".5", "-.5", "+.9",
		"true", "False", "NULL", "inf", "-INF", "nan",
		"pa(ren", "brace}", "semi;colon", "eq=uals", "sla/sh", `back\slash`,
		`quo"te`, "hash#", "new\nline", "tab\tchar",
	}
	for _, s := range quoted {
		assert.False(t, IsBareString(s), "%q should require quoting", s)
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{"", `""`},
		{"say \"hi\"", `"say \"hi\""`},
		{"back\\slash", `"back\\slash"`},
		{"tab\there", `"tab\there"`},
		{"line\nbreak", `"line\nbreak"`},
		{"cr\rlf", `"cr\rlf"`},
		{"bell\bform\f", `"bell\bform\f"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteString(tt.in))
	}
}

func TestQuoteStringEscapesControlChars(t *testing.T) {
	got := QuoteString("nul" + string(rune(0)) + "end")
	assert.Equal(t, `"nul\`+`u{0}end"`, got)

	// LS is in the newline class and may not appear literally
	got = QuoteString(string(rune(0x2028)))
	assert.Equal(t, `"\`+`u{2028}"`, got)
}

func TestAppendRawStringMinimalHashes(t *testing.T) {
	tests := []struct {
		in     string
		hashes int
	}{
		{"plain", 1},
		{`has "quote`, 1},
		{`has "# one`, 2},
		{`has "## two`, 3},
		{`tail"`, 1},
		{`tail"#`, 2},
	}
	for _, tt := range tests {
		out, ok := AppendRawString(nil, tt.in)
		assert.True(t, ok)
		prefix := strings.Repeat("#", tt.hashes) + `"`
		suffix := `"` + strings.Repeat("#", tt.hashes)
		assert.Equal(t, prefix+tt.in+suffix, string(out), "input %q", tt.in)
		// minimality: the terminator sequence must not occur in the body
		assert.NotContains(t, tt.in, `"`+strings.Repeat("#", tt.hashes))
		if tt.hashes > 1 {
			assert.Contains(t, tt.in, `"`+strings.Repeat("#", tt.hashes-1))
		}
	}
}

func TestAppendRawStringRejectsUnrepresentable(t *testing.T) {
	for _, s := range []string{"line\nbreak", "cr\rhere", "nul" + string(rune(0))} {
		_, ok := AppendRawString(nil, s)
		assert.False(t, ok, "%q", s)
	}
}
