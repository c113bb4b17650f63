// Package vision holds the image-processing capability the MRZ pipeline
// consumes, plus decoding and small pixel helpers that need no OpenCV.
package vision

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Segment is a line segment returned by the probabilistic Hough transform.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Processor is the set of image-processing primitives used to locate and
// enhance the MRZ band. Every method returns a new image and leaves its input
// untouched.
type Processor interface {
	Grayscale(img image.Image) (*image.Gray, error)
	Canny(img *image.Gray, low, high float64) (*image.Gray, error)
	HoughLinesP(edges *image.Gray, rho, theta float64, threshold, minLength, maxGap int) ([]Segment, error)
	// OtsuInverse binarizes with an Otsu threshold, text becoming white.
	OtsuInverse(img *image.Gray) (*image.Gray, error)
	// MorphClose closes img with a rectangular kernel of the given size.
	MorphClose(img *image.Gray, kernel image.Point) (*image.Gray, error)
	// ExternalContourBoxes returns the bounding boxes of the outer contours.
	ExternalContourBoxes(img *image.Gray) ([]image.Rectangle, error)
	CLAHE(img *image.Gray, clipLimit float64, tiles image.Point) (*image.Gray, error)
	Bilateral(img *image.Gray, diameter int, sigmaColor, sigmaSpace float64) (*image.Gray, error)
	// AdaptiveThreshold applies Gaussian adaptive binary thresholding.
	AdaptiveThreshold(img *image.Gray, blockSize int, c float64) (*image.Gray, error)
	// Rotate rotates img about its center by angle degrees, counter-clockwise
	// for positive angles, keeping the frame size and replicating the border.
	Rotate(img image.Image, angle float64) (image.Image, error)
}

// Crop returns a copy of the part of img inside r, with its origin reset to
// zero. r is clipped to the image bounds first.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// ToRGBA copies img into an RGBA image with its origin at zero.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	return Crop(img, img.Bounds())
}

// ToGray converts img to 8-bit grayscale with its origin at zero.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetGray(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return dst
}
