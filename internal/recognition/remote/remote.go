// Package remote provides a recognition engine that delegates to an OCR
// service over HTTP, for example a PaddleOCR or EasyOCR sidecar.
//
// The service receives the image as the request body and answers with
// {"lines": ["..."]} or {"text": "..."}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"mrzgate/internal/recognition"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Config describes a remote OCR service.
type Config struct {
	Name   string
	URL    string
	Kind   recognition.Kind
	APIKey string
	// Timeout bounds a whole HTTP exchange. Zero keeps the client default.
	Timeout time.Duration
}

// Engine calls a remote OCR service. It is safe for concurrent use.
type Engine struct {
	name     string
	endpoint string
	kind     recognition.Kind
	apiKey   string
	client   *http.Client
}

var _ recognition.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// New validates cfg and returns an engine for it.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Name == "" {
		return nil, errors.New("remote engine name is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote engine %s: invalid url %q", cfg.Name, cfg.URL)
	}
	kind := cfg.Kind
	if kind == "" {
		kind = recognition.KindGeneral
	}
	e := &Engine{
		name:     cfg.Name,
		endpoint: u.String(),
		kind:     kind,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Kind() recognition.Kind { return e.kind }

// Recognize sends the image to the service and returns its lines.
func (e *Engine) Recognize(ctx context.Context, in recognition.Input) ([]string, error) {
	body, contentType, err := e.payload(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, recognition.NewEngineError(recognition.ErrorInternal, e.name, "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, recognition.NewEngineError(recognition.ErrorTimeout, e.name, "call service", err)
		}
		return nil, recognition.NewEngineError(recognition.ErrorUnavailable, e.name, "call service", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, recognition.NewEngineError(recognition.ErrorUnavailable, e.name, "read response", err)
	}
	return e.parseResponse(resp.StatusCode, data)
}

func (e *Engine) payload(in recognition.Input) ([]byte, string, error) {
	if in.Image != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, in.Image); err != nil {
			return nil, "", recognition.NewEngineError(recognition.ErrorBadInput, e.name, "encode image", err)
		}
		return buf.Bytes(), "image/png", nil
	}
	if in.Path == "" {
		return nil, "", recognition.NewEngineError(recognition.ErrorBadInput, e.name, "no image", recognition.ErrMissingImage)
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, "", recognition.NewEngineError(recognition.ErrorBadInput, e.name, "read image", err)
	}
	return data, http.DetectContentType(data), nil
}

type response struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
	Error string   `json:"error"`
}

func (e *Engine) parseResponse(status int, body []byte) ([]string, error) {
	if status != http.StatusOK {
		msg := fmt.Sprintf("service returned %d", status)
		var r response
		if json.Unmarshal(body, &r) == nil && r.Error != "" {
			msg += ": " + r.Error
		}
		return nil, recognition.NewEngineError(categoryForStatus(status), e.name, msg, nil)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, recognition.NewEngineError(recognition.ErrorBadResponse, e.name, "decode response", err)
	}
	if len(r.Lines) > 0 {
		return r.Lines, nil
	}
	if r.Text != "" {
		return strings.Split(r.Text, "\n"), nil
	}
	return nil, nil
}

func categoryForStatus(status int) recognition.ErrorCategory {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return recognition.ErrorBadInput
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return recognition.ErrorTimeout
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return recognition.ErrorUnavailable
	default:
		return recognition.ErrorInternal
	}
}
