package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below [slog.LevelDebug] and is reserved for wire-level
// forensics: full provider request/response bodies, raw Telegram update
// payloads. The value -8 matches the spacing of the built-in slog levels.
//
// Trace output is extremely verbose. Enable it only while chasing a
// provider or transport bug.
const LevelTrace = slog.Level(-8)

// ParseLogLevel converts the config file's log_level string to an
// [slog.Level]. Matching is case-insensitive and ignores surrounding
// whitespace; an empty value means info.
//
//	trace          → LevelTrace
//	debug          → slog.LevelDebug
//	info (or "")   → slog.LevelInfo
//	warn, warning  → slog.LevelWarn
//	error          → slog.LevelError
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// ReplaceLogLevelNames is an [slog.HandlerOptions.ReplaceAttr] function
// that renders [LevelTrace] as "TRACE". slog only knows its four
// built-in levels and would otherwise print "DEBUG-4".
func ReplaceLogLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
