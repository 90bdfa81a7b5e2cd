// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods. Polling
// clients retry aggressively on flaky links, so a resent POST would otherwise
// duplicate a message. The middleware validates an Idempotency-Key request
// header, consults a replay lookup to detect previously served requests, and
// annotates the request context so downstream handlers can:
//   - read the normalized key (GetIdempotencyKey)
//   - detect replayed requests (IsReplay)
//   - bypass rate limiting when a replay is served (via an internal flag)
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/alphatexting/go-backend/internal/sysutil"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
//
// The value is expected to be stable for a given semantic operation so that
// retries can be safely deduplicated.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the middleware detected that this request replays
// a previously served operation for the same identity, session, and key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation behavior for
// IdempotencyValidator. TTL enforcement lives in the replay cache, not here.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// ReplaySeen answers whether the composite key of a prior request is still
// within its replay window. store.ReplayCache.Seen satisfies this signature.
type ReplaySeen func(key string) bool

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it in the request context, and checks the replay lookup for a prior
// request with the same (user, session, key) triple. When a replay is
// detected, it marks the context so downstream components can detect it via
// IsReplay and skip rate limiting.
//
// Behavior:
//   - If the header is absent: the middleware is a no-op.
//   - If the header fails validation: responds 400 with a compact error body.
//   - If seen indicates a replay: sets replay + rate-bypass flags.
//   - Always invokes the next handler unless validation fails.
//
// Handlers remain in control of how to serve replays; this middleware never
// returns a cached payload itself.
func IdempotencyValidator(opts IdempotencyOptions, seen ReplaySeen) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if seen != nil {
			if seen(ReplayKey(requesterID(c), c.Param("id"), key)) {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// ReplayKey builds the composite cache key for an idempotent request: the
// declared identity, the session id from the route, and the client's key.
func ReplayKey(userID, sessionID, key string) string {
	return userID + "\x00" + sessionID + "\x00" + key
}

// requesterID extracts the self-declared user identity: the X-User-ID header
// first, then the username query parameter. Anonymous requests share one
// bucket.
func requesterID(c *gin.Context) string {
	return sysutil.FirstNonEmpty(c.GetHeader(userIDHeader), c.Query("username"), "anonymous")
}
