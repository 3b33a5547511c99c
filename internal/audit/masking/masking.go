// Package masking redacts personal data and secrets before they reach the
// audit trail.
package masking

import "strings"

const maskToken = "****"

// MaskSecret keeps the last four characters of a secret.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	local, domain, ok := strings.Cut(trimmed, "@")
	if !ok || local == "" || domain == "" {
		return MaskSecret(trimmed)
	}
	return local[:1] + maskToken + "@" + domain
}

// Metadata returns a copy of input with values under sensitive keys masked.
// Nested maps are walked; other values are copied as is.
func Metadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return Metadata(cast)
	case string:
		switch sensitivity(key) {
		case sensitiveEmail:
			return MaskEmail(cast)
		case sensitiveSecret:
			return MaskSecret(cast)
		}
		return cast
	default:
		return value
	}
}

type sensitiveKind int

const (
	notSensitive sensitiveKind = iota
	sensitiveEmail
	sensitiveSecret
)

func sensitivity(key string) sensitiveKind {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "email"):
		return sensitiveEmail
	case strings.Contains(key, "token"),
		strings.Contains(key, "secret"),
		strings.Contains(key, "password"),
		strings.Contains(key, "api_key"):
		return sensitiveSecret
	default:
		return notSensitive
	}
}
