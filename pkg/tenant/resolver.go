package tenant

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

// SitesPrefix is the internal routing namespace for tenant-scoped
// requests. Clients must never reach it directly: only the subdomain
// rewrite below is allowed to produce paths under it.
const SitesPrefix = "/_sites"

var subdomainRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSubdomain reports whether s is a well-formed tenant subdomain:
// lowercase alphanumeric plus hyphen, 1-63 chars, no leading or trailing
// hyphen
func ValidSubdomain(s string) bool {
	return subdomainRe.MatchString(s)
}

// Resolve maps a request host onto a tenant subdomain. It returns ""
// for the primary domain: the root domain itself, the local development
// host, or any host that does not parse as a single well-formed
// subdomain of the root. Failing open to the dashboard keeps malformed
// hosts away from tenant data.
func Resolve(host, rootDomain, localHost string) string {
	host = strings.ToLower(host)

	if host == rootDomain || host == localHost {
		return ""
	}

	var remainder string
	switch {
	case strings.HasSuffix(host, "."+rootDomain):
		remainder = strings.TrimSuffix(host, "."+rootDomain)
	case strings.HasSuffix(host, "."+localHost):
		remainder = strings.TrimSuffix(host, "."+localHost)
	default:
		return ""
	}

	if !ValidSubdomain(remainder) {
		return ""
	}
	return remainder
}

// Middleware rewrites tenant-subdomain requests into the internal
// /_sites/<tenant> namespace so downstream handlers resolve tenant data
// purely from the path. Register it with e.Pre so it runs before the
// router matches.
//
// Paths already starting with the internal prefix are rejected outright
// regardless of host; /api and other non-tenant paths pass through
// untouched.
func Middleware(rootDomain, localHost string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if strings.HasPrefix(path, SitesPrefix) {
				return echo.NewHTTPError(http.StatusNotFound)
			}

			if strings.HasPrefix(path, "/api/") {
				return next(c)
			}

			tenantKey := Resolve(req.Host, rootDomain, localHost)
			if tenantKey == "" {
				return next(c)
			}

			req.URL.Path = SitesPrefix + "/" + tenantKey + path
			return next(c)
		}
	}
}
