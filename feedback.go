package crossaudio

import (
	"io"
	"log/slog"
	"os"
)

// NodeFree exists for API-shape parity with the language-neutral
// external interface (§6), which specifies an explicit free call for
// every owned value. Go's garbage collector reclaims Node and NodeList
// values on their own, so this is a documented no-op.
func NodeFree(Node) ErrorKind {
	return Ok
}

// NodesFree is the NodeList counterpart to NodeFree; see its doc.
func NodesFree(*NodeList) ErrorKind {
	return Ok
}

// NewLogger builds a *slog.Logger suitable for passing to EngineNew:
// level is one of "debug", "info", "warn", "error", or
// "none" to discard everything. When file is empty, logs go to stdout
// as text; otherwise they're written as JSON to the named file, whose
// *os.File is returned so the caller can close it on shutdown.
func NewLogger(level, file string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "none":
		return slog.New(slog.NewTextHandler(io.Discard, nil)), io.NopCloser(nil), nil
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	if file == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, opts)), f, nil
}
