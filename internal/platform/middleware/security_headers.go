package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiHeaders are sent on every response. The API only returns JSON, so the
// browser is told to load, frame and sniff nothing.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	// Patient and bed records must not outlive the response in a shared
	// ward browser or a proxy.
	{"Cache-Control", "no-store"},
}

// hsts is only sent when the client reached us over https, directly or
// through a proxy; plain http deployments must stay reachable.
const hsts = "max-age=31536000; includeSubDomains"

// SecurityHeaders sets the response headers of the patient and bed API.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if c.Scheme() == "https" {
				h.Set("Strict-Transport-Security", hsts)
			}
			return next(c)
		}
	}
}
