package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	exif "github.com/dsoprea/go-exif/v3"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrEmptyImage is returned when no image bytes were supplied.
var ErrEmptyImage = errors.New("empty image")

// ErrUndecodable is returned when the bytes are not an image in a supported
// format.
var ErrUndecodable = errors.New("undecodable image")

// Decode decodes an uploaded image and turns it upright according to its EXIF
// orientation. It returns the image and its format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if o := Orientation(data); o > 1 {
		img = Orient(img, o)
	}
	return img, format, nil
}

// Orientation returns the EXIF orientation tag (1 to 8) of an encoded image,
// or 1 when the image carries no usable EXIF data.
func Orientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return 1
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}
	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if v, ok := entry.Value.([]uint16); ok && len(v) > 0 && v[0] >= 1 && v[0] <= 8 {
			return int(v[0])
		}
	}
	return 1
}
