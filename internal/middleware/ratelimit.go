package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/dimitrije/teamtasks-api/internal/ratelimit"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// RateLimit allows at most limit requests per window for each client on the
// named route. Excess requests get 429 with a Retry-After header in seconds.
func RateLimit(limiter ratelimit.Limiter, route string, limit int) drift.HandlerFunc {
	return func(c *drift.Context) {
		key := route + ":" + ClientIP(c)
		decision := limiter.Allow(c.Request.Context(), key, limit)

		c.Response.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		remaining := limit - decision.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Response.Header().Set("Retry-After", strconv.Itoa(seconds))
			apierror.Write(c, http.StatusTooManyRequests, dto.CodeRateLimited, "too many requests, try again later")
			return
		}

		c.Next()
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func ClientIP(c *drift.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
