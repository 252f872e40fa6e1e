// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. Player identities
// are usually email addresses and show up in paths such as
// /personal-best/:name, so paths and query strings are scrubbed of emails,
// UUIDs and phone numbers before they are logged. Session headers
// (Authorization, Cookie, Set-Cookie and any extra names) are masked entirely.
// Bodies are never logged.
//
// The logger also attaches a request-scoped zerolog.Logger to the context
// (see LoggerFrom) carrying the request id and the caller's identity.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions adds header names to the built-in mask list.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// UUIDs first: the phone pattern would otherwise eat their digit runs.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-7][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redact scrubs ids, emails and phone numbers from s.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger logs one line per request at info, warn (4xx) or error
// (5xx) with method, scrubbed path and query, status, size, latency and
// masked headers.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		rawPath := c.Request.URL.Path
		route := c.FullPath()
		query := redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		rid := RequestIDFrom(c)
		if rid == "" {
			rid = c.GetHeader(requestIDHeader)
		}
		scoped := log.With().Str("request_id", rid).Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		// Authentication runs after this middleware; pick the identity up now.
		user := Identity(c)
		if user != "" {
			scoped = scoped.With().Str("user", redact(user)).Logger()
		}

		status := c.Writer.Status()
		ev := scoped.Info()
		switch {
		case status >= 500:
			ev = scoped.Error()
		case status >= 400:
			ev = scoped.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		ev.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", redact(rawPath)).
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
