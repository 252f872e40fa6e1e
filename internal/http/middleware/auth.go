// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. A session token is read from the
// auth cookie or an "Authorization: Bearer" header and looked up through a
// narrow TokenLookup function; when enabled, the demo X-User-ID header is
// accepted as a plain identity. The resolved identity and role are stored on
// the Gin context under "userID" and "userRole", where the logger, the rate
// limiter and the handlers pick them up.
//
// Authenticate never rejects a request by itself. Route groups add
// RequireUser and RequireRole to turn a missing identity into 401 and a
// missing role into 403.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	ctxKeyIdentity = "userID"
	ctxKeyRole     = "userRole"

	// HeaderUserID is the demo identity header honoured when
	// AuthOptions.AllowHeaderIdentity is set.
	HeaderUserID = "X-User-ID"
)

// ErrUnknownToken is returned by a TokenLookup when no profile holds the token.
var ErrUnknownToken = errors.New("unknown session token")

// Principal is the authenticated caller.
type Principal struct {
	Identity string
	Role     string
}

// TokenLookup resolves a session token. It returns ErrUnknownToken for tokens
// that match no profile; any other error is treated as a backend failure.
type TokenLookup func(ctx context.Context, token string) (Principal, error)

// IdentityLookup resolves the role of a header-supplied identity. A nil
// lookup, or an ErrUnknownToken result, leaves the role empty.
type IdentityLookup func(ctx context.Context, identity string) (Principal, error)

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// CookieName is the session cookie; empty disables cookie auth.
	CookieName string
	// AllowHeaderIdentity accepts X-User-ID when no token is presented.
	AllowHeaderIdentity bool

	ByToken    TokenLookup
	ByIdentity IdentityLookup
}

// Identity returns the authenticated identity, or "" for anonymous requests.
func Identity(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Role returns the authenticated role, or "".
func Role(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyRole); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetPrincipal stores p on the context. Tests and alternative auth schemes use
// it to impersonate a caller.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(ctxKeyIdentity, p.Identity)
	c.Set(ctxKeyRole, p.Role)
}

// Authenticate resolves the caller and stores the Principal on the context.
//
// Resolution order:
//  1. Session cookie (opts.CookieName)
//  2. Authorization: Bearer <token>
//  3. X-User-ID, only when opts.AllowHeaderIdentity
//
// Unknown tokens leave the request anonymous. A lookup failure responds 503.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if tok := sessionToken(c, opts.CookieName); tok != "" && opts.ByToken != nil {
			p, err := opts.ByToken(ctx, tok)
			switch {
			case err == nil:
				SetPrincipal(c, p)
				c.Next()
				return
			case errors.Is(err, ErrUnknownToken):
				// fall through to the header identity, if any
			default:
				log.Error().Err(err).Msg("session lookup failed")
				abortJSON(c, http.StatusServiceUnavailable, "service_unavailable", "authentication backend unavailable")
				return
			}
		}

		if opts.AllowHeaderIdentity {
			if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" {
				p := Principal{Identity: id}
				if opts.ByIdentity != nil {
					got, err := opts.ByIdentity(ctx, id)
					switch {
					case err == nil:
						p.Role = got.Role
					case errors.Is(err, ErrUnknownToken):
					default:
						log.Error().Err(err).Msg("identity lookup failed")
						abortJSON(c, http.StatusServiceUnavailable, "service_unavailable", "authentication backend unavailable")
						return
					}
				}
				SetPrincipal(c, p)
			}
		}

		c.Next()
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Identity(c) == "" {
			edgeRejections.WithLabelValues("unauthorized").Inc()
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers without role with 403. Anonymous callers get 401.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Identity(c) == "" {
			edgeRejections.WithLabelValues("unauthorized").Inc()
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		if Role(c) != role {
			edgeRejections.WithLabelValues("forbidden").Inc()
			abortJSON(c, http.StatusForbidden, "forbidden", role+" access required")
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookie string) string {
	if cookie != "" {
		if v, err := c.Cookie(cookie); err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// abortJSON writes the shared error envelope. Handlers use their own copy of
// this shape; middleware cannot import the handlers package.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
