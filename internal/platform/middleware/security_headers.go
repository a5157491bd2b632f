package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets the response headers of an API that handles minors'
// health data. frameAncestors lists the portal origins allowed to embed the
// inline PDF previews; every other response refuses framing.
func SecurityHeaders(frameAncestors []string) echo.MiddlewareFunc {
	pdfCSP := "default-src 'none'; frame-ancestors 'none'"
	if len(frameAncestors) > 0 {
		pdfCSP = "default-src 'none'; frame-ancestors " + strings.Join(frameAncestors, " ")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "0")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Cache-Control", "no-store")

			if c.QueryParam("inline") != "" && strings.Contains(c.Path(), "/files/") {
				h.Set("Content-Security-Policy", pdfCSP)
			} else {
				h.Set("X-Frame-Options", "DENY")
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}

			return next(c)
		}
	}
}
