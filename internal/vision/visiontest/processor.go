// Package visiontest provides a pure-Go vision.Processor for tests.
//
// Thresholding, morphology and contour extraction are real, if slow,
// implementations so region search can run on synthetic frames. Edge and line
// detection are scripted, and the filters used only for enhancement pass
// pixels through.
package visiontest

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"mrzgate/internal/vision"
)

// Processor is a vision.Processor test double. The zero value is ready to use.
type Processor struct {
	// Segments is returned by every HoughLinesP call.
	Segments []vision.Segment
	// Err, when set, is returned by every method.
	Err error

	mu      sync.Mutex
	calls   []string
	rotated []float64
}

var _ vision.Processor = (*Processor)(nil)

// Calls returns the primitive calls made so far, formatted with their
// parameters.
func (p *Processor) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Rotations returns the angles passed to Rotate.
func (p *Processor) Rotations() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.rotated...)
}

func (p *Processor) record(format string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
	return p.Err
}

func (p *Processor) Grayscale(img image.Image) (*image.Gray, error) {
	if err := p.record("grayscale"); err != nil {
		return nil, err
	}
	return clone(vision.ToGray(img)), nil
}

// Canny returns the input unchanged.
func (p *Processor) Canny(img *image.Gray, low, high float64) (*image.Gray, error) {
	if err := p.record("canny %g %g", low, high); err != nil {
		return nil, err
	}
	return clone(img), nil
}

// HoughLinesP returns the scripted Segments.
func (p *Processor) HoughLinesP(_ *image.Gray, rho, theta float64, threshold, minLength, maxGap int) ([]vision.Segment, error) {
	if err := p.record("hough %g %.4f %d %d %d", rho, theta, threshold, minLength, maxGap); err != nil {
		return nil, err
	}
	return append([]vision.Segment(nil), p.Segments...), nil
}

func (p *Processor) OtsuInverse(img *image.Gray) (*image.Gray, error) {
	if err := p.record("otsu"); err != nil {
		return nil, err
	}
	t := otsu(img)
	out := image.NewGray(img.Rect)
	for i, v := range img.Pix {
		if v <= t {
			out.Pix[i] = 255
		}
	}
	return out, nil
}

func (p *Processor) MorphClose(img *image.Gray, kernel image.Point) (*image.Gray, error) {
	if err := p.record("close %dx%d", kernel.X, kernel.Y); err != nil {
		return nil, err
	}
	return erode(dilate(img, kernel), kernel), nil
}

// ExternalContourBoxes returns the bounding boxes of the 8-connected
// foreground components, which match the outer contours of solid blobs.
func (p *Processor) ExternalContourBoxes(img *image.Gray) ([]image.Rectangle, error) {
	if err := p.record("contours"); err != nil {
		return nil, err
	}
	return components(img), nil
}

// CLAHE returns the input unchanged.
func (p *Processor) CLAHE(img *image.Gray, clipLimit float64, tiles image.Point) (*image.Gray, error) {
	if err := p.record("clahe %g %dx%d", clipLimit, tiles.X, tiles.Y); err != nil {
		return nil, err
	}
	return clone(img), nil
}

// Bilateral returns the input unchanged.
func (p *Processor) Bilateral(img *image.Gray, diameter int, sigmaColor, sigmaSpace float64) (*image.Gray, error) {
	if err := p.record("bilateral %d %g %g", diameter, sigmaColor, sigmaSpace); err != nil {
		return nil, err
	}
	return clone(img), nil
}

// AdaptiveThreshold thresholds at mid-gray.
func (p *Processor) AdaptiveThreshold(img *image.Gray, blockSize int, c float64) (*image.Gray, error) {
	if err := p.record("adaptive %d %g", blockSize, c); err != nil {
		return nil, err
	}
	out := image.NewGray(img.Rect)
	for i, v := range img.Pix {
		if v >= 128 {
			out.Pix[i] = 255
		}
	}
	return out, nil
}

// Rotate records the angle and returns a copy of img.
func (p *Processor) Rotate(img image.Image, angle float64) (image.Image, error) {
	if err := p.record("rotate %g", angle); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.rotated = append(p.rotated, angle)
	p.mu.Unlock()
	return vision.Crop(img, img.Bounds()), nil
}

// Band returns a white w×h frame with a black filled rectangle at r, the
// shape of a printed MRZ line after closing.
func Band(w, h int, rects ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

func clone(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

func otsu(img *image.Gray) uint8 {
	var hist [256]int
	for _, v := range img.Pix {
		hist[v]++
	}
	total := len(img.Pix)
	sum := 0
	for i, n := range hist {
		sum += i * n
	}

	var best uint8
	bestVar := -1.0
	sumB, wB := 0, 0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += t * hist[t]
		mB := float64(sumB) / float64(wB)
		mF := float64(sum-sumB) / float64(wF)
		v := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if v > bestVar {
			bestVar = v
			best = uint8(t)
		}
	}
	return best
}

// morph applies a rectangular max (dilate) or min (erode) filter anchored at
// the kernel center. Erosion walks the reflected window so that a closing
// returns solid rectangles unchanged. Pixels outside the image are ignored.
func morph(img *image.Gray, k image.Point, dilateOp bool) *image.Gray {
	b := img.Rect
	out := image.NewGray(b)
	ax, ay := k.X/2, k.Y/2
	sign := 1
	if !dilateOp {
		sign = -1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint8(255)
			if dilateOp {
				v = 0
			}
			for ky := 0; ky < k.Y; ky++ {
				for kx := 0; kx < k.X; kx++ {
					pt := image.Pt(x+sign*(kx-ax), y+sign*(ky-ay))
					if !pt.In(b) {
						continue
					}
					s := img.GrayAt(pt.X, pt.Y).Y
					if dilateOp && s > v || !dilateOp && s < v {
						v = s
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

func dilate(img *image.Gray, k image.Point) *image.Gray { return morph(img, k, true) }
func erode(img *image.Gray, k image.Point) *image.Gray  { return morph(img, k, false) }

func components(img *image.Gray) []image.Rectangle {
	b := img.Rect
	seen := make([]bool, len(img.Pix))
	idx := func(x, y int) int { return (y-b.Min.Y)*b.Dx() + (x - b.Min.X) }

	var boxes []image.Rectangle
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if seen[idx(x, y)] || img.GrayAt(x, y).Y == 0 {
				continue
			}
			box := image.Rect(x, y, x+1, y+1)
			stack := []image.Point{{x, y}}
			seen[idx(x, y)] = true
			for len(stack) > 0 {
				pt := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				box = box.Union(image.Rect(pt.X, pt.Y, pt.X+1, pt.Y+1))
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						n := image.Pt(pt.X+dx, pt.Y+dy)
						if !n.In(b) || seen[idx(n.X, n.Y)] || img.GrayAt(n.X, n.Y).Y == 0 {
							continue
						}
						seen[idx(n.X, n.Y)] = true
						stack = append(stack, n)
					}
				}
			}
			boxes = append(boxes, box)
		}
	}
	return boxes
}
