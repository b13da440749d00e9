// Package logger provides structured logging for bankline.
package logger

import (
	"log/slog"
	"strings"
)

// Key fragments that mark an attribute as a secret.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
	"cookie",
}

const (
	redactedValue = "***REDACTED***"
	bearerPrefix  = "bearer "
)

// redactSensitive replaces secrets in an attribute. Bearer values are
// masked wherever they appear; secret-looking keys lose their value.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		if len(strVal) > len(bearerPrefix) && strings.EqualFold(strVal[:len(bearerPrefix)], bearerPrefix) {
			return slog.String(a.Key, strVal[:len(bearerPrefix)]+maskValue(strVal[len(bearerPrefix):]))
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps three characters on each side of long values.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString masks a value before it is embedded in a message.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return value[:len(bearerPrefix)] + maskValue(value[len(bearerPrefix):])
	}
	return maskValue(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
