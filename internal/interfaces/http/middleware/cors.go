// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/config"
)

// originPolicy holds the allowed origins split into exact origins and branch
// wildcards. "*.pharmacy.test" admits every branch subdomain of pharmacy.test on
// any port, but not the apex itself.
type originPolicy struct {
	any       bool
	exact     map[string]bool
	subdomain []string
}

func newOriginPolicy(allowed []string) originPolicy {
	p := originPolicy{exact: make(map[string]bool, len(allowed))}
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			p.any = true
		case strings.HasPrefix(origin, "*."):
			p.subdomain = append(p.subdomain, "."+strings.ToLower(strings.TrimPrefix(origin, "*.")))
		case origin != "":
			p.exact[strings.ToLower(strings.TrimSuffix(origin, "/"))] = true
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any || p.exact[strings.ToLower(origin)] {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range p.subdomain {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing for till
// front-ends. Allowed origins are echoed back so credentials keep working.
func CORS(cfg *config.Config) gin.HandlerFunc {
	policy := newOriginPolicy(cfg.Security.CORSAllowedOrigins)
	methods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	headers := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		c.Header("Vary", "Origin")

		if policy.allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Expose-Headers", "X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
