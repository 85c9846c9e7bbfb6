package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces identity values too short to shorten safely.
const RedactedValue = "[REDACTED]"

// identityKeys are attribute names whose values are wallet identities.
var identityKeys = map[string]struct{}{
	"owner":       {},
	"from":        {},
	"destination": {},
	"caller":      {},
	"governance":  {},
}

// Field returns key and value as a string attribute. Values under an identity
// key are passed through ShortKey; everything else is written as is.
func Field(key, value string) slog.Attr {
	if _, ok := identityKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return ShortKey(key, value)
	}
	return slog.String(key, value)
}

// ShortKey keeps the first and last four characters of a base58 key so log
// lines can be correlated without printing full owner identities.
func ShortKey(key, value string) slog.Attr {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		return slog.String(key, "")
	case len(trimmed) <= 8:
		return slog.String(key, RedactedValue)
	}
	return slog.String(key, trimmed[:4]+"…"+trimmed[len(trimmed)-4:])
}
