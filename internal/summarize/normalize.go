package summarize

import "strings"

// Normalize maps a raw token to its comparable form: every rune that is not
// an ASCII letter or digit is stripped and the remainder is lowercased.
// Tokens with no alphanumeric content normalize to "".
func Normalize(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}
