package configview

import (
	"regexp"
	"strings"
)

// Marker replaces every redacted value.
const Marker = "[REDACTED]"

// SensitiveTerms flag a key, or a long string value, as secret.
// Matching is a case-insensitive substring test.
var SensitiveTerms = []string{"token", "secret", "key", "password", "auth", "bearer", "credential", "apikey"}

// minContentLen is the length a string must exceed before its content
// is checked against SensitiveTerms.
const minContentLen = 8

var hexToken = regexp.MustCompile(`^[a-f0-9]{20,}$`)

// Redact returns a copy of v with sensitive values replaced by Marker.
// Maps are redacted by key first, then recursively; slices element-wise;
// strings by content. Other values pass through. This is a best-effort
// filter, not an access control.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if SensitiveKey(k) {
				out[k] = Marker
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	case string:
		if SensitiveString(t) {
			return Marker
		}
		return t
	default:
		return v
	}
}

func SensitiveKey(k string) bool {
	return containsTerm(strings.ToLower(k))
}

// SensitiveString applies the content heuristics: a long string naming a
// sensitive term, or a bare lowercase hex blob of 20+ characters.
func SensitiveString(s string) bool {
	if len(s) > minContentLen && containsTerm(strings.ToLower(s)) {
		return true
	}
	return hexToken.MatchString(s)
}

func containsTerm(lower string) bool {
	for _, term := range SensitiveTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
