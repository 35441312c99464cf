package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"school-gateway-go/internal/config"
	"school-gateway-go/internal/credential"
	"school-gateway-go/internal/service"
	"school-gateway-go/internal/session"
)

// SessionHandler serves the session surface the frontend drives: the
// auth-check passthrough and logout.
type SessionHandler struct {
	service *service.GatewayService
	minter  *session.Minter
	cfg     *config.Config
	logger  *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc *service.GatewayService, minter *session.Minter, cfg *config.Config, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		minter:  minter,
		cfg:     cfg,
		logger:  logger.With("component", "session_handler"),
	}
}

// Check forwards the upstream auth-check endpoint with the resolved
// credentials. On a successful JSON response it adds a "redirect" key with
// the landing route for the payload's role, so the frontend never keeps its
// own role-to-route map.
func (h *SessionHandler) Check(c echo.Context) error {
	gr := newGatewayRequest(c)
	creds := credential.Resolve(gr)

	result, err := h.service.Forward(gr.Ctx, http.MethodGet, h.cfg.Session.AuthCheckPath, nil, creds)
	if err != nil {
		h.logger.Error("auth check failed",
			"sub_path", h.cfg.Session.AuthCheckPath,
			"err", redactTokens(err),
		)
		return c.JSON(http.StatusInternalServerError, internalErrorBody)
	}

	if result.StatusCode >= 200 && result.StatusCode <= 299 {
		if obj, ok := result.JSON.(map[string]any); ok {
			augmented := make(map[string]any, len(obj)+1)
			for k, v := range obj {
				augmented[k] = v
			}
			augmented["redirect"] = session.LandingRoute(session.ParseRole(payloadRole(obj)))
			return c.JSON(result.StatusCode, augmented)
		}
	}

	return respond(c, result)
}

// Logout calls the upstream logout endpoint and expires the session cookies.
// The upstream call is best-effort: a dead upstream must not leave the
// browser holding live session cookies.
func (h *SessionHandler) Logout(c echo.Context) error {
	gr := newGatewayRequest(c)
	creds := credential.Resolve(gr)

	if _, err := h.service.Forward(gr.Ctx, http.MethodPost, h.cfg.Session.LogoutPath, nil, creds); err != nil {
		h.logger.Warn("upstream logout failed; clearing cookies anyway",
			"sub_path", h.cfg.Session.LogoutPath,
			"err", redactTokens(err),
		)
	}

	for _, ck := range h.minter.ClearSession() {
		c.SetCookie(ck)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

// payloadRole digs the role string out of an auth-check payload, checking
// the nested data object first.
func payloadRole(obj map[string]any) string {
	if data, ok := obj["data"].(map[string]any); ok {
		if role, ok := data["role"].(string); ok {
			return role
		}
	}
	if role, ok := obj["role"].(string); ok {
		return role
	}
	return ""
}
