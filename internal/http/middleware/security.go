// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file adds hardening headers for a JSON API that browser clients call
// with device coordinates. The Permissions-Policy deliberately keeps
// geolocation available to the page's own origin: the web client reads the
// member's position before posting a check-in, so a blanket geolocation=()
// would break the main flow. Everything else stays locked down.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Static policy values, computed once.
const (
	// Geolocation stays usable by the caller's own origin for check-ins;
	// the remaining powerful features are denied outright.
	permissionsPolicy = "geolocation=(self), microphone=(), camera=(), payment=()"

	crossDomainPolicy = "none"
)

// SecurityOptions configures SecurityHeaders.
//
// EnableHSTS emits Strict-Transport-Security, and only on requests that are
// actually HTTPS (direct TLS or X-Forwarded-Proto from the proxy) — enable it
// solely when the proxy-to-app hop is encrypted too. HSTSMaxAge defaults to
// 180 days when unset. NoStore adds Cache-Control: no-store for responses
// that must never be cached. EnablePolicy switches the browser feature
// policies on; they are inert for non-browser clients.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders returns a middleware that stamps hardening headers on
// every response.
//
// Always: X-Content-Type-Options: nosniff, X-Frame-Options: DENY,
// Referrer-Policy: no-referrer. The optional groups follow SecurityOptions.
// When a correlation ID is on the response, it is added to
// Access-Control-Expose-Headers so browser clients can read it back.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hstsValue := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", permissionsPolicy)
			h.Set("X-Permitted-Cross-Domain-Policies", crossDomainPolicy)
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			exposeHeader(h, "X-Request-ID")
		}

		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers without
// clobbering or duplicating entries set by earlier middleware.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or via a
// proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
