// Package session issues and clears the gateway's session cookies and maps
// authenticated roles to their landing routes.
package session

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"school-gateway-go/internal/config"
	"school-gateway-go/internal/credential"
	"school-gateway-go/internal/metrics"
	"school-gateway-go/internal/model"
)

// RoleCookie is the client-side role hint cookie. The gateway never sets it,
// but logout clears it together with the session cookies.
const RoleCookie = "role"

// Augmented response body keys added after a successful login.
const (
	tokenKey    = "_token"
	schoolIDKey = "_school_id"
)

// Minter inspects upstream responses from login endpoints and, on success,
// derives the session cookie set and the augmented response payload.
type Minter struct {
	loginPaths map[string]bool
	maxAge     int
	secure     bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewMinter creates a Minter from the session configuration. The metrics
// parameter is optional; pass nil to disable mint counting.
func NewMinter(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Minter {
	paths := make(map[string]bool, len(cfg.Session.LoginPaths))
	for _, p := range cfg.Session.LoginPaths {
		paths[p] = true
	}
	return &Minter{
		loginPaths: paths,
		maxAge:     cfg.Session.CookieMaxAgeSeconds,
		secure:     cfg.IsProduction(),
		logger:     logger.With("component", "session_minter"),
		metrics:    m,
	}
}

// MaybeMint returns the augmented response body and cookie set for a login
// response, or (nil, nil) when the response does not qualify. It triggers
// only when the sub-path is a designated login endpoint, the upstream status
// is a success, and the response body is a JSON object carrying a token.
func (m *Minter) MaybeMint(subPath string, result *model.UpstreamResult) (map[string]any, []*http.Cookie) {
	if !m.loginPaths[subPath] {
		return nil, nil
	}
	if result.StatusCode < 200 || result.StatusCode > 299 {
		return nil, nil
	}
	obj, ok := result.JSON.(map[string]any)
	if !ok {
		return nil, nil
	}
	token, ok := obj["token"].(string)
	if !ok || token == "" {
		return nil, nil
	}

	schoolIDRaw, schoolID := extractSchoolID(obj)

	augmented := make(map[string]any, len(obj)+2)
	for k, v := range obj {
		augmented[k] = v
	}
	augmented[tokenKey] = token
	augmented[schoolIDKey] = schoolIDRaw // nil when the payload carries none

	cookies := []*http.Cookie{m.sessionCookie(credential.TokenCookie, token)}
	if schoolID != "" {
		cookies = append(cookies, m.sessionCookie(credential.SchoolIDCookie, schoolID))
	}

	if m.metrics != nil {
		m.metrics.SessionsMinted.Inc()
	}
	m.logger.Info("session minted",
		"sub_path", subPath,
		"has_school_id", schoolID != "",
	)

	return augmented, cookies
}

// ClearSession returns expired cookies for exactly the cookies a session can
// consist of: the two the minter issues plus the client-side role hint.
// Keeping this enumeration next to MaybeMint keeps set and clear symmetric.
func (m *Minter) ClearSession() []*http.Cookie {
	names := []string{credential.TokenCookie, credential.SchoolIDCookie, RoleCookie}
	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		c := m.sessionCookie(name, "")
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		cookies = append(cookies, c)
	}
	return cookies
}

func (m *Minter) sessionCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// extractSchoolID pulls the data.school_id field out of the login payload.
// It returns the raw JSON value (for the augmented body) and its cookie
// rendering; JSON numbers drop the trailing ".0" so integral ids round-trip
// cleanly into the cookie value.
func extractSchoolID(obj map[string]any) (any, string) {
	data, ok := obj["data"].(map[string]any)
	if !ok {
		return nil, ""
	}
	switch v := data["school_id"].(type) {
	case string:
		return v, v
	case float64:
		return v, strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil, ""
	}
}
