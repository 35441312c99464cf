// Package model defines the request-scoped types shared across the gateway.
package model

import (
	"context"
	"io"
	"net/http"
)

// BodyKind discriminates the decoded-body union.
type BodyKind int

const (
	// BodyNone means the request carried no usable body.
	BodyNone BodyKind = iota
	// BodyJSON means the body parsed as a JSON value.
	BodyJSON
	// BodyForm means the body parsed as form parts (multipart or urlencoded).
	BodyForm
	// BodyText means the body was kept as raw text.
	BodyText
)

// FormPart is one field or file of a decoded form body. Urlencoded pairs use
// the same representation (empty Filename and ContentType) so the forwarder
// can re-encode both uniformly.
type FormPart struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// DecodedBody is the tagged union produced by the body codec. Exactly one of
// JSON, Form or Text is meaningful, selected by Kind.
type DecodedBody struct {
	Kind BodyKind
	JSON any
	Form []FormPart
	Text string
}

// Credentials carries the bearer token and tenant scope resolved for one
// request. Either field may be empty; absence only omits the corresponding
// upstream header.
type Credentials struct {
	Token    string
	SchoolID string
}

// UpstreamResult is the decoded upstream response. JSON holds the parsed
// value when IsJSON is set, otherwise Text holds the raw body.
type UpstreamResult struct {
	StatusCode  int
	ContentType string
	IsJSON      bool
	JSON        any
	Text        string
}

// GatewayRequest holds all per-request state for one pass through the
// gateway pipeline. It is built at handler entry, owned by that single
// request, and discarded at response time. Nothing in it may be stored in
// process-wide state: two interleaved requests must never observe each
// other's decoded body or credentials.
type GatewayRequest struct {
	Ctx     context.Context
	Method  string
	SubPath string
	Header  http.Header
	Cookies []*http.Cookie
	Body    io.ReadCloser

	// Decode-once cache. The underlying body stream is drained at most
	// once; subsequent decode calls return the cached value.
	decoded    *DecodedBody
	decodeDone bool
}

// CachedBody returns the decoded body if a decode already ran for this
// request.
func (r *GatewayRequest) CachedBody() (*DecodedBody, bool) {
	return r.decoded, r.decodeDone
}

// SetCachedBody records the decode result so repeated decode calls are
// idempotent against the already-drained stream.
func (r *GatewayRequest) SetCachedBody(b *DecodedBody) {
	r.decoded = b
	r.decodeDone = true
}

// Cookie returns the named cookie, or nil if the request does not carry it.
func (r *GatewayRequest) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
