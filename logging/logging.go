// Package logging builds the structured logger used by the cozebridge binaries.
//
// Every logger returned by New passes records through a RedactingHandler, so
// Coze access tokens never reach the output in full.
package logging

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values.
const RedactedPlaceholder = "[REDACTED]"

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error (default: info)
	Format string // json or text (default: json)
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var inner slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		inner = slog.NewTextHandler(w, handlerOpts)
	} else {
		inner = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(NewRedactingHandler(inner))
}

// ParseLevel maps a level name onto slog levels. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var sensitivePatterns = []*regexp.Regexp{
	// Coze personal access tokens
	regexp.MustCompile(`pat_[A-Za-z0-9_-]+`),
	// Bearer tokens in header dumps
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]+`),
}

var sensitiveKeys = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"secret",
	"password",
	"token",
	"credential",
}

// Redact replaces every token-like substring of s.
func Redact(s string) string {
	for _, pattern := range sensitivePatterns {
		s = pattern.ReplaceAllString(s, RedactedPlaceholder)
	}
	return s
}

// RedactingHandler wraps an slog.Handler and scrubs sensitive data from
// messages and attributes.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps inner.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

// Enabled reports whether the inner handler handles records at level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle redacts the record and forwards it.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a handler that redacts attrs up front.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted)}
}

// WithGroup returns a handler nested under name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactedPlaceholder)
	}

	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
