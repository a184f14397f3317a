package logging

import (
	"log/slog"
	"strings"
)

const redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach a log line.
var secretKeys = map[string]struct{}{
	"token":         {},
	"api_token":     {},
	"authorization": {},
}

// redactor scrubs credentials from attributes. Bridge errors can echo request
// URLs, so configured secrets are also masked inside string values.
type redactor struct {
	secrets []string
}

func newRedactor(secrets []string) redactor {
	var kept []string
	for _, s := range secrets {
		// Short values would mask unrelated text.
		if s = strings.TrimSpace(s); len(s) >= 8 {
			kept = append(kept, s)
		}
	}
	return redactor{secrets: kept}
}

func (r redactor) attr(attr slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, redacted)
	}
	if len(r.secrets) == 0 {
		return attr
	}
	switch attr.Value.Kind() {
	case slog.KindString:
		attr.Value = slog.StringValue(r.text(attr.Value.String()))
	case slog.KindAny:
		if err, ok := attr.Value.Any().(error); ok {
			attr.Value = slog.StringValue(r.text(err.Error()))
		}
	}
	return attr
}

func (r redactor) text(value string) string {
	for _, secret := range r.secrets {
		value = strings.ReplaceAll(value, secret, redacted)
	}
	return value
}
