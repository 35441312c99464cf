// Package body decodes inbound request bodies by declared content type and
// re-encodes them for forwarding. The underlying stream is read at most once
// per request: the decode result is cached on the GatewayRequest, so repeated
// calls are idempotent and concurrent requests never share body state.
package body

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"school-gateway-go/internal/model"
)

// bodyNone is the shared "no body" result.
var bodyNone = &model.DecodedBody{Kind: model.BodyNone}

// decoder turns a raw body stream into a DecodedBody for one content type.
type decoder struct {
	name   string
	match  func(contentType string) bool
	decode func(contentType string, r io.Reader) (*model.DecodedBody, error)
}

// decoders is the ordered content-type registry. The first matching entry
// wins; the trailing raw-text entry matches everything.
var decoders = []decoder{
	{
		name: "multipart",
		match: func(ct string) bool {
			return strings.Contains(ct, "multipart/form-data") || strings.Contains(ct, "boundary=")
		},
		decode: decodeMultipart,
	},
	{
		name: "urlencoded",
		match: func(ct string) bool {
			return strings.Contains(ct, "application/x-www-form-urlencoded")
		},
		decode: decodeURLEncoded,
	},
	{
		name: "json",
		match: func(ct string) bool {
			return strings.Contains(ct, "application/json")
		},
		decode: decodeJSON,
	},
	{
		name:   "text",
		match:  func(string) bool { return true },
		decode: decodeText,
	},
}

// Decode returns the decoded body for the request, reading the underlying
// stream only on the first call. Malformed bodies degrade to BodyNone: a
// write request with an unparsable body is forwarded bodyless rather than
// failing the whole gateway call.
func Decode(gr *model.GatewayRequest, logger *slog.Logger) *model.DecodedBody {
	if cached, ok := gr.CachedBody(); ok {
		return cached
	}

	decoded := decodeOnce(gr, logger)
	gr.SetCachedBody(decoded)
	return decoded
}

func decodeOnce(gr *model.GatewayRequest, logger *slog.Logger) *model.DecodedBody {
	if gr.Body == nil {
		return bodyNone
	}

	contentType := gr.Header.Get("Content-Type")
	for _, d := range decoders {
		if !d.match(contentType) {
			continue
		}
		decoded, err := d.decode(contentType, gr.Body)
		if err != nil {
			logger.Warn("body decode failed; forwarding without body",
				"decoder", d.name,
				"method", gr.Method,
				"sub_path", gr.SubPath,
				"err", err,
			)
			return bodyNone
		}
		return decoded
	}

	// Unreachable: the text decoder matches every content type.
	return bodyNone
}

func decodeMultipart(contentType string, r io.Reader) (*model.DecodedBody, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parse media type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("multipart content type without boundary")
	}

	mr := multipart.NewReader(r, boundary)
	var parts []model.FormPart
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, fmt.Errorf("read part %q: %w", p.FormName(), err)
		}
		parts = append(parts, model.FormPart{
			Name:        p.FormName(),
			Filename:    p.FileName(),
			ContentType: p.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	if len(parts) == 0 {
		return bodyNone, nil
	}
	return &model.DecodedBody{Kind: model.BodyForm, Form: parts}, nil
}

func decodeURLEncoded(_ string, r io.Reader) (*model.DecodedBody, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse urlencoded body: %w", err)
	}

	// Same representation as multipart fields so the forwarder can
	// re-encode both uniformly.
	var parts []model.FormPart
	for name, vals := range values {
		for _, v := range vals {
			parts = append(parts, model.FormPart{Name: name, Data: []byte(v)})
		}
	}

	if len(parts) == 0 {
		return bodyNone, nil
	}
	return &model.DecodedBody{Kind: model.BodyForm, Form: parts}, nil
}

func decodeJSON(_ string, r io.Reader) (*model.DecodedBody, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// An empty JSON body is "no body", not a parse error.
	if strings.TrimSpace(string(raw)) == "" {
		return bodyNone, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse json body: %w", err)
	}
	return &model.DecodedBody{Kind: model.BodyJSON, JSON: v}, nil
}

func decodeText(_ string, r io.Reader) (*model.DecodedBody, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) == 0 {
		return bodyNone, nil
	}
	return &model.DecodedBody{Kind: model.BodyText, Text: string(raw)}, nil
}

// quoteEscaper escapes part names and filenames for Content-Disposition.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeForm re-encodes decoded form parts as a fresh multipart body for
// forwarding. File parts keep their filename and declared content type;
// binary data passes through byte-identical.
func EncodeForm(parts []model.FormPart) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		if p.Filename != "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(p.Name), quoteEscaper.Replace(p.Filename)))
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`,
				quoteEscaper.Replace(p.Name)))
		}
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %q: %w", p.Name, err)
		}
		if _, err := pw.Write(p.Data); err != nil {
			return nil, "", fmt.Errorf("write part %q: %w", p.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
