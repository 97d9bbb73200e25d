package document

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kdlworks/kdl2/internal/chars"
)

// IsBareString returns true if s can be written as an identifier-string:
// every character is an identifier character, the token cannot be confused
// with a number, and it does not collide with a literal keyword.
func IsBareString(s string) bool {
	if len(s) == 0 {
		return false
	}
	r := []rune(s)
	for _, c := range r {
		if !chars.IsIdentChar(c) {
			return false
		}
	}
	at := func(i int) rune {
		if i >= len(r) {
			return -1
		}
		return r[i]
	}
	if chars.IsDigit(r[0]) {
		return false
	}
	if chars.IsSign(r[0]) && chars.IsDigit(at(1)) {
		return false
	}
	if chars.IsSign(r[0]) && at(1) == '.' && chars.IsDigit(at(2)) {
		return false
	}
	if r[0] == '.' && chars.IsDigit(at(1)) {
		return false
	}
	if chars.IsConfusableKeyword(s) {
		return false
	}
	return true
}

// appendStringLike emits s bare when the grammar allows it, quoted
// otherwise; used for node names, tags, and property keys.
func appendStringLike(b []byte, s string) []byte {
	if IsBareString(s) {
		return append(b, s...)
	}
	return AppendQuotedString(b, s)
}

// QuoteString returns s as a quoted, escaped KDL string literal.
func QuoteString(s string) string {
	b := make([]byte, 0, len(s)*5/4+2)
	return string(AppendQuotedString(b, s))
}

// AppendQuotedString appends s as a quoted KDL string to b, escaping
// whatever may not appear literally: quotes, backslashes, newlines, and the
// disallowed codepoints.
func AppendQuotedString(b []byte, s string) []byte {
	b = append(b, '"')
	for _, r := range s {
		switch r {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		case '\b':
			b = append(b, '\\', 'b')
		case '\f':
			b = append(b, '\\', 'f')
		default:
			if r < 0x20 || chars.IsNewline(r) || chars.IsDisallowedLiteral(r) {
				b = append(b, '\\', 'u', '{')
				b = strconv.AppendUint(b, uint64(r), 16)
				b = append(b, '}')
			} else {
				b = utf8.AppendRune(b, r)
			}
		}
	}
	return append(b, '"')
}

// AppendRawString appends s in raw-string notation with the minimal hash
// count that terminates correctly: the smallest k >= 1 such that a quote
// followed by k hashes does not occur in s. The second return is false when
// s cannot be a single-line raw string (it contains a newline or a
// disallowed codepoint) and the caller must fall back to a quoted string.
func AppendRawString(b []byte, s string) ([]byte, bool) {
	for _, r := range s {
		if chars.IsNewline(r) || chars.IsDisallowedLiteral(r) {
			return b, false
		}
	}
	hashes := 1
	for strings.Contains(s, `"`+strings.Repeat("#", hashes)) {
		hashes++
	}
	for i := 0; i < hashes; i++ {
		b = append(b, '#')
	}
	b = append(b, '"')
	b = append(b, s...)
	b = append(b, '"')
	for i := 0; i < hashes; i++ {
		b = append(b, '#')
	}
	return b, true
}
