// Package sysutil holds small string helpers shared by the entrypoint and
// the HTTP layer: log-level selection, env-style boolean parsing, and
// fallback-chain resolution for request identity.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// logLevels maps config names to zerolog levels. "warning" is accepted as
// an alias because LOG_LEVEL values tend to arrive from .env files written
// for other loggers.
var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// SetLogLevel sets the global zerolog level from a config string.
// Unknown or empty values fall back to info.
func SetLogLevel(name string) {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// IsTruthy interprets an env-style or query-style flag value ("1", "true",
// "yes", "y", "on", any casing) as true; everything else is false. Used for
// toggles like the history endpoint's include_gym parameter.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty walks a fallback chain and returns the first value that is
// not blank after trimming, or "" when every candidate is blank. The HTTP
// layer uses it to resolve the acting user: context identity, then the
// X-User-ID header, then the demo default.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
