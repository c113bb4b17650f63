// Package opencv implements vision.Processor on top of OpenCV through gocv.
package opencv

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"mrzgate/internal/vision"
)

// Processor runs the image primitives with OpenCV. It holds no state and is
// safe for concurrent use.
type Processor struct{}

// New returns an OpenCV backed processor.
func New() *Processor {
	return &Processor{}
}

var _ vision.Processor = (*Processor)(nil)

func (p *Processor) Grayscale(img image.Image) (*image.Gray, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return toGray(dst)
}

func (p *Processor) Canny(img *image.Gray, low, high float64) (*image.Gray, error) {
	return apply(img, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.Canny(src, dst, float32(low), float32(high))
	})
}

func (p *Processor) HoughLinesP(edges *image.Gray, rho, theta float64, threshold, minLength, maxGap int) ([]vision.Segment, error) {
	src, err := fromGray(edges)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(src, &lines, float32(rho), float32(theta), threshold, float32(minLength), float32(maxGap))

	segments := make([]vision.Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		segments = append(segments, vision.Segment{X1: int(v[0]), Y1: int(v[1]), X2: int(v[2]), Y2: int(v[3])})
	}
	return segments, nil
}

func (p *Processor) OtsuInverse(img *image.Gray) (*image.Gray, error) {
	return apply(img, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.Threshold(src, dst, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
	})
}

func (p *Processor) MorphClose(img *image.Gray, kernel image.Point) (*image.Gray, error) {
	k := gocv.GetStructuringElement(gocv.MorphRect, kernel)
	defer k.Close()
	return apply(img, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.MorphologyEx(src, dst, gocv.MorphClose, k)
	})
}

func (p *Processor) ExternalContourBoxes(img *image.Gray) ([]image.Rectangle, error) {
	src, err := fromGray(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	boxes := make([]image.Rectangle, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		boxes = append(boxes, gocv.BoundingRect(contours.At(i)))
	}
	return boxes, nil
}

func (p *Processor) CLAHE(img *image.Gray, clipLimit float64, tiles image.Point) (*image.Gray, error) {
	clahe := gocv.NewCLAHEWithParams(clipLimit, tiles)
	defer clahe.Close()
	return apply(img, func(src gocv.Mat, dst *gocv.Mat) {
		clahe.Apply(src, dst)
	})
}

func (p *Processor) Bilateral(img *image.Gray, diameter int, sigmaColor, sigmaSpace float64) (*image.Gray, error) {
	return apply(img, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.BilateralFilter(src, dst, diameter, sigmaColor, sigmaSpace)
	})
}

func (p *Processor) AdaptiveThreshold(img *image.Gray, blockSize int, c float64) (*image.Gray, error) {
	return apply(img, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.AdaptiveThreshold(src, dst, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, blockSize, float32(c))
	})
}

func (p *Processor) Rotate(img image.Image, angle float64) (image.Image, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	size := image.Pt(src.Cols(), src.Rows())
	m := gocv.GetRotationMatrix2D(image.Pt(size.X/2, size.Y/2), angle, 1.0)
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(src, &dst, m, size, gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})

	out, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat: %w", err)
	}
	return out, nil
}

func apply(img *image.Gray, op func(src gocv.Mat, dst *gocv.Mat)) (*image.Gray, error) {
	src, err := fromGray(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	op(src, &dst)
	return toGray(dst)
}

func fromGray(img *image.Gray) (gocv.Mat, error) {
	m, err := gocv.ImageGrayToMatGray(vision.ToGray(img))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert image: %w", err)
	}
	return m, nil
}

func toGray(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat: %w", err)
	}
	return vision.ToGray(img), nil
}
