package credential

import (
	"net/http"
	"testing"

	"school-gateway-go/internal/model"
)

func request(header http.Header, cookies ...*http.Cookie) *model.GatewayRequest {
	if header == nil {
		header = http.Header{}
	}
	return &model.GatewayRequest{
		Method:  http.MethodGet,
		Header:  header,
		Cookies: cookies,
	}
}

func TestResolve_HeaderWinsOverCookie(t *testing.T) {
	header := http.Header{}
	header.Set(TokenHeader, "header-token")
	header.Set(SchoolIDHeader, "42")

	gr := request(header,
		&http.Cookie{Name: TokenCookie, Value: "cookie-token"},
		&http.Cookie{Name: SchoolIDCookie, Value: "7"},
	)

	creds := Resolve(gr)
	if creds.Token != "header-token" {
		t.Errorf("Token = %q, want %q (header overrides cookie)", creds.Token, "header-token")
	}
	if creds.SchoolID != "42" {
		t.Errorf("SchoolID = %q, want %q (header overrides cookie)", creds.SchoolID, "42")
	}
}

func TestResolve_CookieFallback(t *testing.T) {
	gr := request(nil,
		&http.Cookie{Name: TokenCookie, Value: "cookie-token"},
		&http.Cookie{Name: SchoolIDCookie, Value: "7"},
	)

	creds := Resolve(gr)
	if creds.Token != "cookie-token" {
		t.Errorf("Token = %q, want %q", creds.Token, "cookie-token")
	}
	if creds.SchoolID != "7" {
		t.Errorf("SchoolID = %q, want %q", creds.SchoolID, "7")
	}
}

func TestResolve_CookieValueIsURLDecoded(t *testing.T) {
	gr := request(nil, &http.Cookie{Name: TokenCookie, Value: "abc%3D%3D123"})

	creds := Resolve(gr)
	if creds.Token != "abc==123" {
		t.Errorf("Token = %q, want %q (URL-decoded)", creds.Token, "abc==123")
	}
}

func TestResolve_AbsenceIsNotAnError(t *testing.T) {
	creds := Resolve(request(nil))
	if creds.Token != "" || creds.SchoolID != "" {
		t.Errorf("Resolve() = %+v, want empty credentials", creds)
	}
}

func TestResolve_MixedSources(t *testing.T) {
	header := http.Header{}
	header.Set(TokenHeader, "header-token")

	gr := request(header, &http.Cookie{Name: SchoolIDCookie, Value: "7"})

	creds := Resolve(gr)
	if creds.Token != "header-token" {
		t.Errorf("Token = %q, want %q", creds.Token, "header-token")
	}
	if creds.SchoolID != "7" {
		t.Errorf("SchoolID = %q, want %q (cookie fills absent header)", creds.SchoolID, "7")
	}
}
