// Conservative security headers for the orchestrator's JSON API. No CSP
// here; these endpoints never serve HTML.
package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders returns a middleware attaching baseline hardening headers
// to every response. Safe alongside CORS and logging middleware.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
