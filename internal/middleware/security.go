package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// APIContentSecurityPolicy forbids every resource type; the API never serves documents.
const APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

const credentialPathPrefix = "/api/auth/"

// SecurityHeaders applies the response headers expected from a JSON API. Responses under
// /api/auth/ carry tokens and are never stored by browsers or proxies.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", APIContentSecurityPolicy)
		c.Header("Referrer-Policy", "no-referrer")
		if strings.HasPrefix(c.Request.URL.Path, credentialPathPrefix) {
			c.Header("Cache-Control", "no-store")
			c.Header("Pragma", "no-cache")
		}
		c.Next()
	}
}
