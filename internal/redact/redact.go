// Package redact centralizes string-masking helpers used wherever a
// secret-shaped value (session tokens, plugin auth headers) ends up in a
// log line or audit event.
package redact

import "strings"

// Token masks an arbitrary token-like string for display/logging.
//   - length <= 4  → all asterisks of the same length
//   - 5..12        → keep first 2 characters, replace the rest with asterisks
//   - > 12         → keep first 8 characters, "...", then last 4 characters
func Token(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	if len(s) <= 12 {
		return s[:2] + strings.Repeat("*", len(s)-2)
	}
	return s[:8] + "..." + s[len(s)-4:]
}

// ByPrefix masks a token that follows a known prefix convention (e.g.
// "Bearer "), leaving non-prefixed strings unchanged so callers don't
// accidentally mangle unrelated header values.
func ByPrefix(s, prefix string) string {
	if s == "" || !strings.HasPrefix(s, prefix) {
		return s
	}
	rest := s[len(prefix):]
	if len(rest) <= 8 {
		return s
	}
	const visible = 4
	first := rest[:visible]
	last := rest[len(rest)-visible:]
	middle := strings.Repeat("*", len(rest)-(visible*2))
	return prefix + first + middle + last
}

// Header masks the value of a header known to carry credentials
// (Authorization, Cookie, X-Api-Key) for inclusion in audit details.
func Header(name, value string) string {
	switch strings.ToLower(name) {
	case "authorization":
		return ByPrefix(value, "Bearer ")
	case "cookie", "set-cookie", "x-api-key":
		return Token(value)
	default:
		return value
	}
}
