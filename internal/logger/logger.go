package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the application logger. Diagnostics go to stderr so they never
// interleave with the ping output on stdout; when logFilePath is non-empty
// they are mirrored to that file as well.
func New(logFilePath string, logLevelStr string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if logFilePath != "" {
		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(os.Stderr, logFile)
		closeFn = func() { _ = logFile.Close() }
	}

	var level slog.Level
	switch strings.ToUpper(logLevelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
