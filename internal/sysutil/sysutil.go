// Package sysutil holds small process-level helpers shared by the
// orchestrator and worker binaries: global log-level wiring and env-style
// string parsing used by the config loader.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// logLevels maps accepted LOG_LEVEL values to zerolog levels. "warning" is an
// alias kept for operators used to other loggers.
var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// SetLogLevel sets the global zerolog level from a config string,
// case-insensitively. Empty or unrecognized values fall back to info.
func SetLogLevel(lvl string) {
	if l, ok := logLevels[strings.ToLower(strings.TrimSpace(lvl))]; ok {
		zerolog.SetGlobalLevel(l)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// IsTruthy reports whether an env-style flag reads as enabled.
// Accepted (case-insensitive): 1, true, yes, y, on.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// IsFalsy reports whether an env-style flag reads as explicitly disabled.
// Accepted (case-insensitive): 0, false, no, n, off. A value that is neither
// truthy nor falsy leaves the caller's default in effect.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that contains more than whitespace,
// or "" when none does. Useful for env-var fallback chains.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
