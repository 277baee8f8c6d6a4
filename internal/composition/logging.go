package composition

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/masq"
)

// labelRedactor redacts log attributes named password, secret, token,
// apikey or credential, the same field names the teacher's observability
// package redacts.
func labelRedactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithFieldName("password"),
		masq.WithFieldName("secret"),
		masq.WithFieldName("token"),
		masq.WithFieldName("apikey"),
		masq.WithFieldName("credential"),
	)
}

// NewLogger returns the composition package's default logger, writing
// JSON to os.Stdout at the given level ("debug", "info", "warn",
// "error"), redacting sensitive clip metadata the way the teacher's
// observability.NewLogger does.
func NewLogger(level string) *slog.Logger {
	return NewLoggerWithWriter(level, os.Stdout)
}

// NewLoggerWithWriter is NewLogger with an explicit writer, used by
// tests to capture log output.
func NewLoggerWithWriter(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	redactor := labelRedactor()
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactor(groups, a)
		},
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
