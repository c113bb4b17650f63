// Package region finds and prepares the machine-readable zone of a document
// photo: deskewing the frame, locating the MRZ band and enhancing it for
// text recognition.
package region

import (
	"fmt"
	"image"
	"math"
	"sort"

	"mrzgate/internal/vision"
)

// Region is the located MRZ band and where it sits in the source frame.
type Region struct {
	Image  *image.RGBA
	Bounds image.Rectangle
}

// Locator parameters.
const (
	DefaultBottomFraction = 0.45
	// fallbackCropStart is the fraction of the frame height where the fixed
	// bottom crop starts when no band is found.
	fallbackCropStart = 0.58

	cannyLow, cannyHigh = 50, 150
	houghThreshold      = 80
	houghMinLength      = 80
	houghMaxGap         = 10
	maxSkewDegrees      = 45.0
	minSkewDegrees      = 0.5

	padHeight = 0.18
	padWidth  = 0.03
)

// pass is one band search configuration.
type pass struct {
	kernel    image.Point
	minAspect float64
	minHeight int
	// belowThird requires the box to start below the first third of the frame.
	belowThird bool
}

var (
	bottomPass = pass{kernel: image.Pt(40, 6), minAspect: 4.5, minHeight: 8}
	fullPass   = pass{kernel: image.Pt(50, 8), minAspect: 6, minHeight: 10, belowThird: true}
)

// Locator deskews frames and finds the MRZ band in them.
type Locator struct {
	proc           vision.Processor
	bottomFraction float64
}

// Option configures a Locator.
type Option func(*Locator)

// WithBottomFraction sets the fraction of the frame, from the bottom, searched
// first. Values outside (0, 1] are ignored.
func WithBottomFraction(f float64) Option {
	return func(l *Locator) {
		if f > 0 && f <= 1 {
			l.bottomFraction = f
		}
	}
}

// NewLocator returns a Locator using proc for the image primitives.
func NewLocator(proc vision.Processor, opts ...Option) *Locator {
	l := &Locator{proc: proc, bottomFraction: DefaultBottomFraction}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deskew estimates the dominant text-line angle from near-horizontal line
// segments and rotates the frame to level it. It returns the image and the
// applied rotation in degrees; the input is returned as is when no segment
// qualifies or the median angle is below half a degree.
func (l *Locator) Deskew(img image.Image) (image.Image, float64, error) {
	gray, err := l.proc.Grayscale(img)
	if err != nil {
		return nil, 0, fmt.Errorf("grayscale: %w", err)
	}
	edges, err := l.proc.Canny(gray, cannyLow, cannyHigh)
	if err != nil {
		return nil, 0, fmt.Errorf("edges: %w", err)
	}
	segments, err := l.proc.HoughLinesP(edges, 1, math.Pi/180, houghThreshold, houghMinLength, houghMaxGap)
	if err != nil {
		return nil, 0, fmt.Errorf("line transform: %w", err)
	}

	angles := make([]float64, 0, len(segments))
	for _, s := range segments {
		dx, dy := s.X2-s.X1, s.Y2-s.Y1
		if dx == 0 {
			continue
		}
		a := math.Atan2(float64(dy), float64(dx)) * 180 / math.Pi
		if math.Abs(a) < maxSkewDegrees {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return img, 0, nil
	}
	med := median(angles)
	if math.Abs(med) < minSkewDegrees {
		return img, 0, nil
	}
	rotated, err := l.proc.Rotate(img, med)
	if err != nil {
		return nil, 0, fmt.Errorf("rotate: %w", err)
	}
	return rotated, med, nil
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Locate searches the bottom of the frame for the MRZ band, then the whole
// frame with looser limits. The first candidate by ascending top edge, then
// descending width, is padded and clipped to the frame. It returns false when
// neither pass finds a candidate.
func (l *Locator) Locate(img image.Image) (Region, bool, error) {
	b := img.Bounds()
	h := b.Dy()

	startY := int(float64(h) * (1 - l.bottomFraction))
	bottom := vision.Crop(img, image.Rect(b.Min.X, b.Min.Y+startY, b.Max.X, b.Max.Y))
	candidates, err := l.search(bottom, bottomPass, h)
	if err != nil {
		return Region{}, false, err
	}
	for i := range candidates {
		candidates[i] = candidates[i].Add(image.Pt(0, startY))
	}

	if len(candidates) == 0 {
		candidates, err = l.search(vision.ToRGBA(img), fullPass, h)
		if err != nil {
			return Region{}, false, err
		}
	}
	if len(candidates) == 0 {
		return Region{}, false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Min.Y != candidates[j].Min.Y {
			return candidates[i].Min.Y < candidates[j].Min.Y
		}
		return candidates[i].Dx() > candidates[j].Dx()
	})
	box := pad(candidates[0], image.Rect(0, 0, b.Dx(), b.Dy()))
	abs := box.Add(b.Min)
	return Region{Image: vision.Crop(img, abs), Bounds: abs}, true, nil
}

// search runs one pass over img. Returned boxes are relative to img.
func (l *Locator) search(img image.Image, p pass, frameHeight int) ([]image.Rectangle, error) {
	gray, err := l.proc.Grayscale(img)
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}
	bw, err := l.proc.OtsuInverse(gray)
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}
	closed, err := l.proc.MorphClose(bw, p.kernel)
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	boxes, err := l.proc.ExternalContourBoxes(closed)
	if err != nil {
		return nil, fmt.Errorf("contours: %w", err)
	}

	var out []image.Rectangle
	for _, box := range boxes {
		w, h := box.Dx(), box.Dy()
		if h <= 0 {
			continue
		}
		if float64(w)/float64(h) <= p.minAspect || h <= p.minHeight {
			continue
		}
		if p.belowThird && box.Min.Y <= frameHeight/3 {
			continue
		}
		out = append(out, box)
	}
	return out, nil
}

func pad(box, frame image.Rectangle) image.Rectangle {
	ph := int(float64(box.Dy()) * padHeight)
	pw := int(float64(box.Dx()) * padWidth)
	return image.Rect(box.Min.X-pw, box.Min.Y-ph, box.Max.X+pw, box.Max.Y+ph).Intersect(frame)
}

// FallbackCrop returns the bottom 42% of the frame, used when Locate finds
// nothing.
func FallbackCrop(img image.Image) Region {
	b := img.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y+int(float64(b.Dy())*fallbackCropStart), b.Max.X, b.Max.Y)
	return Region{Image: vision.Crop(img, r), Bounds: r}
}
