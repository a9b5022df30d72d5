package auditevent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const Redacted = "[REDACTED]"

// credentialKeywords is the denylist of key-name substrings whose values are
// never written to the audit store.
var credentialKeywords = []string{
	"password",
	"hashed_password",
	"secret_key",
	"api_key",
	"token",
	"credit_card",
	"ssn",
	"tax_id",
}

func sensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, keyword := range credentialKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of values with every value under a denylisted key
// replaced by Redacted, recursing through nested maps and slices. The input
// is never modified.
func Sanitize(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		if sensitiveKey(key) {
			out[key] = Redacted
			continue
		}
		out[key] = sanitizeValue(value)
	}
	return out
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Sanitize(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	case map[any]any:
		// Non-string-keyed maps cannot round-trip through JSON; keep their
		// string form so the event stays serializable.
		return fmt.Sprintf("%v", v)
	default:
		// A snapshot leaf that cannot be serialized degrades to its string
		// form rather than failing the audit write.
		if _, err := json.Marshal(value); err != nil {
			return fmt.Sprintf("%v", value)
		}
		return value
	}
}
