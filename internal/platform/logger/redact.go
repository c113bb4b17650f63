package logger

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces redacted attribute values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys that are always redacted.
var sensitiveKeys = map[string]bool{
	// Holder data read from the zone
	"document_number": true,
	"birth_date":      true,
	"date_of_birth":   true,
	"expiry_date":     true,
	"date_of_expiry":  true,
	"surname":         true,
	"given_names":     true,
	"personal_number": true,
	"mrz_line":        true,
	"mrz_lines":       true,
	"raw_lines":       true,

	// Derived keys
	"kenc":     true,
	"kmac":     true,
	"kseed":    true,
	"bac_keys": true,

	// Credentials
	"authorization": true,
	"cookie":        true,
	"x-api-key":     true,
	"api_key":       true,
	"apikey":        true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"signing_key":   true,
}

// sensitiveKeywords redact any key containing them.
var sensitiveKeywords = []string{"password", "secret", "token", "credential", "private"}

// sensitivePatterns redact string values regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	// JWTs
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Bearer credentials
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	// MRZ lines
	regexp.MustCompile(`^[A-Z0-9<]{30,}$`),
}

// RedactingHandler wraps an slog.Handler and masks attributes carrying
// MRZ holder data, derived keys or credentials before they reach it.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler. A nil handler wraps the default one.
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redact(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(masked)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, g := range group {
			masked[i] = redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || hasSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

func hasSensitiveKeyword(key string) bool {
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(v string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}
