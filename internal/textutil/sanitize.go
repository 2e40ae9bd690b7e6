package textutil

import "strings"

// SanitizeFileName makes an upload filename safe to embed in a storage key.
// Path separators, colons, and asterisks become dashes; shell-hostile
// characters are dropped. Leading and trailing whitespace is trimmed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*':
			b.WriteByte('-')
		case '?', '"', '<', '>', '|':
			// dropped entirely
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizeToken reduces a string to a lowercase token usable in paths and
// metric keys. Anything outside [a-z0-9_-] becomes an underscore; empty or
// fully-stripped input yields "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, value)
	out := strings.Trim(mapped, "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
