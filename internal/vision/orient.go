package vision

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Orient applies an EXIF orientation (1 to 8) so the image displays upright.
// Unknown values return img unchanged.
func Orient(img image.Image, orientation int) image.Image {
	src := ToRGBA(img)
	w, h := float64(src.Rect.Dx()), float64(src.Rect.Dy())

	var m f64.Aff3
	swap := false
	switch orientation {
	case 2: // mirror horizontally
		m = f64.Aff3{-1, 0, w, 0, 1, 0}
	case 3: // rotate 180
		m = f64.Aff3{-1, 0, w, 0, -1, h}
	case 4: // mirror vertically
		m = f64.Aff3{1, 0, 0, 0, -1, h}
	case 5: // transpose
		m, swap = f64.Aff3{0, 1, 0, 1, 0, 0}, true
	case 6: // rotate 90 clockwise
		m, swap = f64.Aff3{0, -1, h, 1, 0, 0}, true
	case 7: // transverse
		m, swap = f64.Aff3{0, -1, h, -1, 0, w}, true
	case 8: // rotate 90 counter-clockwise
		m, swap = f64.Aff3{0, 1, 0, -1, 0, w}, true
	default:
		return img
	}

	size := src.Rect.Size()
	if swap {
		size = image.Pt(size.Y, size.X)
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.NearestNeighbor.Transform(dst, m, src, src.Bounds(), draw.Src, nil)
	return dst
}
