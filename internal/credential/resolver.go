// Package credential resolves the bearer token and tenant scope for a request.
package credential

import (
	"net/url"

	"school-gateway-go/internal/model"
)

// Header and cookie names the resolver consults.
const (
	TokenHeader    = "X-Auth-Token"
	SchoolIDHeader = "X-School-Id"
	TokenCookie    = "token"
	SchoolIDCookie = "school_id"
)

// Resolve derives the credentials for one request. An explicit header always
// wins over the same-purpose cookie; absence of both is not an error and
// leaves the field empty.
func Resolve(gr *model.GatewayRequest) model.Credentials {
	return model.Credentials{
		Token:    resolveValue(gr, TokenHeader, TokenCookie),
		SchoolID: resolveValue(gr, SchoolIDHeader, SchoolIDCookie),
	}
}

func resolveValue(gr *model.GatewayRequest, header, cookie string) string {
	if v := gr.Header.Get(header); v != "" {
		return v
	}
	c := gr.Cookie(cookie)
	if c == nil {
		return ""
	}
	// Cookie values arrive URL-encoded from the browser.
	if decoded, err := url.QueryUnescape(c.Value); err == nil {
		return decoded
	}
	return c.Value
}
