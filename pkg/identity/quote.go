package identity

import (
	"fmt"
	"strings"
)

// IsPlain reports whether s can be written without quotes: a non-empty run
// of ASCII letters, digits and underscores.
func IsPlain(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

// Quote renders a key member value. Plain values are returned as is; other
// values are quoted with the quote character they do not contain. A value
// containing both quote characters is single-quoted with its single quotes
// doubled.
func Quote(s string) string {
	if IsPlain(s) {
		return s
	}
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	}
	return q + strings.ReplaceAll(s, q, q+q) + q
}

// Unquote reverses Quote.
func Unquote(s string) (string, error) {
	if IsPlain(s) {
		return s, nil
	}
	if len(s) < 2 || (s[0] != '\'' && s[0] != '"') || s[len(s)-1] != s[0] {
		return "", fmt.Errorf("invalid quoted value %q", s)
	}
	q := s[:1]
	body := s[1 : len(s)-1]
	// Every quote character inside the body must be doubled.
	if strings.Count(body, q)%2 != 0 || strings.Contains(strings.ReplaceAll(body, q+q, ""), q) {
		return "", fmt.Errorf("invalid quoted value %q: unescaped quote", s)
	}
	return strings.ReplaceAll(body, q+q, q), nil
}
