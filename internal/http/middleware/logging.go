// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file covers request correlation and access logging:
//
//   - RequestID() gives every request a correlation ID, reusing the client's
//     X-Request-ID when present.
//   - Logger() emits one structured zerolog line per request, including the
//     gym and check-in route parameters when the route carries them, and
//     stashes a request-scoped logger for handlers (LoggerFrom).
//   - Recovery() turns panics into the standard JSON 500 envelope.
//
// Install in that order so panics and errors are logged with the
// correlation ID attached.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key holding the correlation ID.
	requestIDKey = "requestID"
	// requestIDHeader carries the correlation ID on requests and responses.
	requestIDHeader = "X-Request-ID"
	// maxLoggedQuery caps how much of the raw query string is logged; gym
	// search requests carry coordinates and filters but never need more.
	maxLoggedQuery = 1024
)

// RequestID reuses the incoming X-Request-ID or generates a UUID, stores it
// in the context, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log line per request.
//
// Fields: correlation ID, user ID (context or X-User-ID header), method,
// route (registered pattern, raw path on 404), gym_id / check_in_id route
// params when present, client IP, user agent, capped query string, request
// and response sizes, status, and latency. Level follows the outcome:
// error for 5xx or collected Gin errors, warn for 4xx, info otherwise.
//
// The request-scoped logger is stored under the "logger" context key so
// handlers can emit enriched lines via LoggerFrom.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		lc := log.With().
			Str("request_id", ctxString(rid)).
			Str("user_id", requestUserID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", clip(c.Request.URL.RawQuery, maxLoggedQuery)).
			Int64("bytes_in", c.Request.ContentLength)
		if gymID := c.Param("gymId"); gymID != "" {
			lc = lc.Str("gym_id", gymID)
		}
		if checkInID := c.Param("checkInId"); checkInID != "" {
			lc = lc.Str("check_in_id", checkInID)
		}
		l := lc.Logger()

		c.Set("logger", &l)

		c.Next()

		out := l.With().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			out.Error().Str("errors", c.Errors.String()).Msg("http request")
		case status >= http.StatusInternalServerError:
			out.Error().Msg("http request")
		case status >= http.StatusBadRequest:
			out.Warn().Msg("http request")
		default:
			out.Info().Msg("http request")
		}
	}
}

// Recovery logs panics with a stack trace and answers with the standard
// JSON error envelope, unless a response was already partially written.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", ctxString(rid)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, ctxString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": ctxString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by Logger(), or the
// global logger when none is attached. Never returns nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// requestUserID resolves the acting user for log correlation: the context
// value when auth middleware set one, otherwise the X-User-ID demo header.
func requestUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.GetHeader("X-User-ID")
}

// ctxString unwraps a string context value, returning "" for anything else.
func ctxString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// clip bounds s to max bytes for logging, marking the cut with an ellipsis.
// max <= 0 disables clipping.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
