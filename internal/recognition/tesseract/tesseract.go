// Package tesseract provides recognition engines backed by Tesseract through
// gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"mrzgate/internal/mrz"
	"mrzgate/internal/recognition"
)

// Engine names used when no name is configured.
const (
	DocumentName = "tesseract-mrz"
	GeneralName  = "tesseract"
)

// Config tunes a Tesseract engine.
type Config struct {
	Name      string
	Languages []string
	// TessdataPrefix points at a directory of trained data, for example one
	// holding an OCR-B model.
	TessdataPrefix string
}

// Engine runs Tesseract on one long-lived client. Calls are serialized
// because a gosseract client must not be used from several goroutines.
type Engine struct {
	name string
	kind recognition.Kind

	mu     sync.Mutex
	client *gosseract.Client
}

var _ recognition.Engine = (*Engine)(nil)

// NewDocument returns an engine tuned for machine-readable zones: it reads
// the image from Input.Path, restricts output to the MRZ alphabet and treats
// the image as a single block of text.
func NewDocument(cfg Config) (*Engine, error) {
	if cfg.Name == "" {
		cfg.Name = DocumentName
	}
	return newEngine(cfg, recognition.KindDocument, mrz.Alphabet, gosseract.PSM_SINGLE_BLOCK)
}

// NewGeneral returns a general-purpose engine reading Input.Image.
func NewGeneral(cfg Config) (*Engine, error) {
	if cfg.Name == "" {
		cfg.Name = GeneralName
	}
	return newEngine(cfg, recognition.KindGeneral, "", gosseract.PSM_AUTO)
}

func newEngine(cfg Config, kind recognition.Kind, whitelist string, psm gosseract.PageSegMode) (*Engine, error) {
	c := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := c.SetLanguage(langs...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(psm); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if whitelist != "" {
		if err := c.SetWhitelist(whitelist); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	return &Engine{name: cfg.Name, kind: kind, client: c}, nil
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Kind() recognition.Kind { return e.kind }

// Recognize runs Tesseract on the input. Document engines need Input.Path,
// general engines Input.Image.
func (e *Engine) Recognize(ctx context.Context, in recognition.Input) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.setImage(in); err != nil {
		return nil, err
	}
	text, err := e.client.Text()
	if err != nil {
		return nil, recognition.NewEngineError(recognition.ErrorInternal, e.name, "recognize text", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return strings.Split(text, "\n"), nil
}

func (e *Engine) setImage(in recognition.Input) error {
	if e.kind == recognition.KindDocument {
		if in.Path == "" {
			return recognition.NewEngineError(recognition.ErrorBadInput, e.name, "set image", recognition.ErrMissingPath)
		}
		if err := e.client.SetImage(in.Path); err != nil {
			return recognition.NewEngineError(recognition.ErrorBadInput, e.name, "set image", err)
		}
		return nil
	}

	if in.Image == nil {
		return recognition.NewEngineError(recognition.ErrorBadInput, e.name, "set image", recognition.ErrMissingImage)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, in.Image); err != nil {
		return recognition.NewEngineError(recognition.ErrorBadInput, e.name, "encode image", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return recognition.NewEngineError(recognition.ErrorBadInput, e.name, "set image", err)
	}
	return nil
}

// Version returns the Tesseract library version.
func (e *Engine) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Version()
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
