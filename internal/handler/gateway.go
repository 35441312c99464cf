package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"school-gateway-go/internal/body"
	"school-gateway-go/internal/credential"
	"school-gateway-go/internal/model"
	"school-gateway-go/internal/service"
	"school-gateway-go/internal/session"
)

// bearerPattern matches bearer tokens embedded in error messages.
var bearerPattern = regexp.MustCompile(`(?i)(Bearer\s+)[^\s"]+`)

// internalErrorBody is the uniform payload for gateway-internal failures.
// Upstream error statuses and bodies pass through untouched; only failures
// inside the gateway itself produce this shape.
var internalErrorBody = map[string]string{"error": "Internal server error"}

// GatewayHandler is the per-verb entry point of the gateway. Each verb runs
// the same linear pipeline: derive sub-path, resolve credentials, decode the
// body (write verbs only), forward upstream, and for POST give the session
// minter a chance to rewrite the response.
type GatewayHandler struct {
	service *service.GatewayService
	minter  *session.Minter
	logger  *slog.Logger
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(svc *service.GatewayService, minter *session.Minter, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		service: svc,
		minter:  minter,
		logger:  logger.With("component", "gateway_handler"),
	}
}

// Get forwards a GET request.
func (h *GatewayHandler) Get(c echo.Context) error {
	return h.handle(c, false, false)
}

// Post forwards a POST request and runs the session minter on the response.
func (h *GatewayHandler) Post(c echo.Context) error {
	return h.handle(c, true, true)
}

// Put forwards a PUT request.
func (h *GatewayHandler) Put(c echo.Context) error {
	return h.handle(c, true, false)
}

// Patch forwards a PATCH request.
func (h *GatewayHandler) Patch(c echo.Context) error {
	return h.handle(c, true, false)
}

// Delete forwards a DELETE request. The body is decoded only when the
// content type declares JSON.
func (h *GatewayHandler) Delete(c echo.Context) error {
	withBody := strings.Contains(c.Request().Header.Get("Content-Type"), "application/json")
	return h.handle(c, withBody, false)
}

func (h *GatewayHandler) handle(c echo.Context, withBody, mint bool) error {
	gr := newGatewayRequest(c)

	creds := credential.Resolve(gr)

	var decoded *model.DecodedBody
	if withBody {
		decoded = body.Decode(gr, h.logger)
	}

	result, err := h.service.Forward(gr.Ctx, gr.Method, gr.SubPath, decoded, creds)
	if err != nil {
		return h.internalError(c, gr, err)
	}

	if mint {
		if augmented, cookies := h.minter.MaybeMint(gr.SubPath, result); augmented != nil {
			for _, ck := range cookies {
				c.SetCookie(ck)
			}
			return c.JSON(result.StatusCode, augmented)
		}
	}

	return respond(c, result)
}

// internalError logs the failure and returns the uniform 500 response. The
// underlying error is never leaked to the client, and tokens are redacted
// from the log line.
func (h *GatewayHandler) internalError(c echo.Context, gr *model.GatewayRequest, err error) error {
	h.logger.Error("gateway pipeline failed",
		"method", gr.Method,
		"sub_path", gr.SubPath,
		"err", redactTokens(err),
	)
	return c.JSON(http.StatusInternalServerError, internalErrorBody)
}

// newGatewayRequest builds the request-scoped pipeline state from the echo
// context. Everything per-request (decode cache included) lives on this
// value and dies with the response.
func newGatewayRequest(c echo.Context) *model.GatewayRequest {
	req := c.Request()
	return &model.GatewayRequest{
		Ctx:     req.Context(),
		Method:  req.Method,
		SubPath: subPath(c),
		Header:  req.Header,
		Cookies: req.Cookies(),
		Body:    req.Body,
	}
}

// subPath is the request path with the gateway mount prefix stripped: the
// wildcard remainder, with surrounding slashes trimmed so it joins cleanly
// onto the upstream base URL.
func subPath(c echo.Context) string {
	return strings.Trim(c.Param("*"), "/")
}

// respond writes the upstream result with its original status code.
func respond(c echo.Context, result *model.UpstreamResult) error {
	if result.IsJSON {
		return c.JSON(result.StatusCode, result.JSON)
	}
	contentType := result.ContentType
	if contentType == "" {
		contentType = echo.MIMETextPlain
	}
	return c.Blob(result.StatusCode, contentType, []byte(result.Text))
}

func redactTokens(err error) string {
	return bearerPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
