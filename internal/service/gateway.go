// Package service implements the core gateway forwarding logic.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"school-gateway-go/internal/body"
	"school-gateway-go/internal/client"
	"school-gateway-go/internal/config"
	"school-gateway-go/internal/model"
)

// ErrUpstreamUnreachable is returned when the network call to the upstream
// API itself fails. Well-formed non-2xx upstream responses are not errors.
var ErrUpstreamUnreachable = errors.New("upstream API unreachable")

const userAgent = "school-gateway-go/1.0"

// GatewayService forwards gateway requests to the upstream school API.
type GatewayService struct {
	client  *client.APIClient
	cfg     *config.Config
	logger  *slog.Logger
	baseURL *url.URL
}

// NewGatewayService creates a GatewayService.
func NewGatewayService(c *client.APIClient, cfg *config.Config, logger *slog.Logger) (*GatewayService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &GatewayService{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "gateway_service"),
		baseURL: u,
	}, nil
}

// Forward sends one request to the upstream API and returns the decoded
// response. The upstream status code is preserved regardless of body shape.
//
// Body encoding: structured form data is re-encoded as multipart (binary
// parts byte-identical); any other present body value is serialized as JSON;
// a nil or BodyNone decoded body results in no request body at all.
func (s *GatewayService) Forward(ctx context.Context, method, subPath string, decoded *model.DecodedBody, creds model.Credentials) (*model.UpstreamResult, error) {
	header := s.buildHeaders(creds)

	reqBody, contentType, err := encodeBody(decoded)
	if err != nil {
		return nil, fmt.Errorf("encode forwarded body: %w", err)
	}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	s.logger.Debug("forwarding request",
		"method", method,
		"sub_path", subPath,
	)

	resp, err := s.client.DoWithBody(ctx, method, s.buildUpstreamURL(subPath), header, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResponse(resp)
}

// buildHeaders sets the credential headers for the forwarded request.
// Absent credentials simply omit the corresponding header.
func (s *GatewayService) buildHeaders(creds model.Credentials) http.Header {
	header := make(http.Header)
	header.Set("User-Agent", userAgent)
	header.Set("Accept", "application/json")
	if creds.Token != "" {
		header.Set("Authorization", "Bearer "+creds.Token)
	}
	if creds.SchoolID != "" {
		header.Set("X-School-ID", creds.SchoolID)
	}
	return header
}

// buildUpstreamURL joins the configured base URL with the request sub-path.
func (s *GatewayService) buildUpstreamURL(subPath string) string {
	base := strings.TrimSuffix(s.baseURL.String(), "/")
	if subPath == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(subPath, "/")
}

// encodeBody serializes a decoded body for forwarding. It returns a nil
// reader when there is nothing to send.
func encodeBody(decoded *model.DecodedBody) (io.Reader, string, error) {
	if decoded == nil {
		return nil, "", nil
	}

	switch decoded.Kind {
	case model.BodyForm:
		return body.EncodeForm(decoded.Form)
	case model.BodyJSON:
		raw, err := json.Marshal(decoded.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json body: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	case model.BodyText:
		raw, err := json.Marshal(decoded.Text)
		if err != nil {
			return nil, "", fmt.Errorf("marshal text body: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	default:
		return nil, "", nil
	}
}

// decodeResponse reads the upstream response and parses it as JSON when the
// Content-Type says so, raw text otherwise.
func decodeResponse(resp *http.Response) (*model.UpstreamResult, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read upstream body: %w", ErrUpstreamUnreachable, err)
	}

	result := &model.UpstreamResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if strings.Contains(result.ContentType, "application/json") && len(bytes.TrimSpace(raw)) > 0 {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			result.IsJSON = true
			result.JSON = v
			return result, nil
		}
		// Declared JSON but unparsable: fall through to raw text.
	}

	result.Text = string(raw)
	return result, nil
}
