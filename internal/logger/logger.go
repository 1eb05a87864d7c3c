package logger

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/samber/oops"
)

var std = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Init installs the process-wide JSON logger at the given level.
func Init(level string) {
	SetOutput(os.Stdout, level)
	Info("logger initialized", map[string]any{"level": parseLevel(level).String()})
}

// SetOutput redirects logging, mainly for tests.
func SetOutput(w io.Writer, level string) {
	std = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
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

func Debug(msg string, fields map[string]any) {
	std.Debug(msg, attrs(fields)...)
}

func Info(msg string, fields map[string]any) {
	std.Info(msg, attrs(fields)...)
}

func Warn(msg string, fields map[string]any) {
	std.Warn(msg, attrs(fields)...)
}

func Error(msg string, fields map[string]any) {
	std.Error(msg, attrs(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	std.Error(msg, append(attrs(fields), slog.Bool("fatal", true))...)
	os.Exit(1)
}

// Err builds the standard fields for a failed operation. Coded errors
// also carry their code.
func Err(err error) map[string]any {
	fields := map[string]any{"error": err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			fields["code"] = code
		}
	}
	return fields
}

func attrs(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}

	// stable output order
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
