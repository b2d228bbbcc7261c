package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the structured logger shared by every package
type Logger struct {
	*slog.Logger
}

// NewLogger builds a text logger at debug level for development and a JSON
// logger at info level otherwise, both writing to stdout
func NewLogger(isDevelopment bool) *Logger {
	return New(os.Stdout, isDevelopment)
}

// New builds a logger writing to w
func New(w io.Writer, isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	return New(io.Discard, false)
}

// WithFields returns a child logger carrying the given attributes
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...)}
}
