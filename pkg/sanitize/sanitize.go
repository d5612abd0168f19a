// Package sanitize cleans free-text form input before it is transmitted or stored.
//
// Text strips markup, drops characters outside a fixed allow-list (printable
// ASCII plus the accented letters and inverted punctuation used in Spanish) and
// collapses whitespace. It never fails: unrecognized characters are dropped.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// tagPattern matches anything that looks like an HTML/XML tag, including an
// unterminated tag running to the end of the string.
var tagPattern = regexp.MustCompile(`</?[^>]+(>|$)`)

// extraLetters are the non-ASCII characters kept for Spanish text.
const extraLetters = "ÁÉÍÓÚáéíóúÑñüÜ¿¡"

// Text returns s with markup removed, disallowed characters dropped and
// whitespace collapsed to single spaces. Text(Text(s)) == Text(s).
func Text(s string) string {
	out := StripTags(s)
	out = strings.Map(keepRune, out)
	return NormalizeWhitespace(out)
}

// StripTags removes tag-like sequences.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// NormalizeWhitespace collapses runs of whitespace to a single space and trims both ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// MaskEmail keeps the first three characters of the local part and the domain,
// e.g. "jane.doe@example.com" becomes "jan****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "****"
	}
	local, domain := []rune(email[:at]), email[at:]
	if len(local) <= 3 {
		return string(local) + "****" + domain
	}
	return string(local[:3]) + "****" + domain
}

// keepRune implements the allow-list. Whitespace outside ASCII is folded to a
// space so NormalizeWhitespace can collapse it; angle brackets left over from
// tag stripping (a lone "<", "<>", "a > b") are dropped.
func keepRune(r rune) rune {
	switch {
	case r == '<' || r == '>':
		return -1
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r >= 0x20 && r <= 0x7E:
		return r
	case strings.ContainsRune(extraLetters, r):
		return r
	case unicode.IsSpace(r):
		return ' '
	default:
		return -1
	}
}
