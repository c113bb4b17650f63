package region

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"mrzgate/internal/vision"
)

// Enhancement parameters.
const (
	claheClip        = 2.5
	bilateralDiam    = 9
	bilateralSigma   = 75
	adaptiveBlock    = 15
	adaptiveConstant = 9
)

var claheTiles = image.Pt(8, 8)

// Enhancer improves contrast and binarizes a located band for recognition.
type Enhancer struct {
	proc vision.Processor
}

// NewEnhancer returns an Enhancer using proc for the image primitives.
func NewEnhancer(proc vision.Processor) *Enhancer {
	return &Enhancer{proc: proc}
}

// Enhance equalizes local contrast, smooths while keeping edges, thresholds
// adaptively and returns the binary mask as a color image.
func (e *Enhancer) Enhance(img image.Image) (*image.RGBA, error) {
	gray, err := e.proc.Grayscale(img)
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}
	eq, err := e.proc.CLAHE(gray, claheClip, claheTiles)
	if err != nil {
		return nil, fmt.Errorf("equalize: %w", err)
	}
	smooth, err := e.proc.Bilateral(eq, bilateralDiam, bilateralSigma, bilateralSigma)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	bw, err := e.proc.AdaptiveThreshold(smooth, adaptiveBlock, adaptiveConstant)
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, bw.Rect.Dx(), bw.Rect.Dy()))
	draw.Draw(out, out.Bounds(), bw, bw.Rect.Min, draw.Src)
	return out, nil
}
