package logger

import "strings"

// RedactedValue replaces any value whose key looks sensitive.
const RedactedValue = "[REDACTED]"

// sensitiveKeys are matched case-insensitively as substrings of field names,
// so "userPassword" and "api_key" are both caught.
var sensitiveKeys = []string{
	"password",
	"passwd",
	"token",
	"secret",
	"apikey",
	"api_key",
	"api-key",
	"authorization",
	"cookie",
	"session",
	"creditcard",
	"credit_card",
	"ssn",
	"pin",
}

// Redact walks maps and slices recursively, replacing values under
// sensitive keys. Scalars and unknown types pass through unchanged.
func Redact(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			if isSensitiveKey(k) {
				out[k] = RedactedValue
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = Redact(val)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
