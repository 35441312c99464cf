package handler

import (
	"github.com/labstack/echo/v4"
)

// MountPrefix is the wildcard prefix all forwarded API calls live under.
// The remainder of the path after it is the upstream sub-path, verbatim.
const MountPrefix = "/api"

// RegisterRoutes wires all route handlers onto the Echo instance.
// The gateway registers one route per HTTP verb rather than Any(): DELETE
// decodes its body conditionally and only POST runs the session minter.
func RegisterRoutes(e *echo.Echo, gateway *GatewayHandler, sess *SessionHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	e.GET("/session/check", sess.Check)
	e.POST("/session/logout", sess.Logout)

	wildcard := MountPrefix + "/*"
	e.GET(wildcard, gateway.Get)
	e.POST(wildcard, gateway.Post)
	e.PUT(wildcard, gateway.Put)
	e.PATCH(wildcard, gateway.Patch)
	e.DELETE(wildcard, gateway.Delete)
}
