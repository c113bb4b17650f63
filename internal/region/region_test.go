package region

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrzgate/internal/vision"
	"mrzgate/internal/vision/visiontest"
)

func TestDeskew(t *testing.T) {
	frame := visiontest.Band(200, 100)

	t.Run("no segments leaves frame", func(t *testing.T) {
		proc := &visiontest.Processor{}
		out, angle, err := NewLocator(proc).Deskew(frame)
		require.NoError(t, err)
		assert.Same(t, image.Image(frame), out)
		assert.Zero(t, angle)
		assert.Empty(t, proc.Rotations())
		assert.Equal(t, []string{"grayscale", "canny 50 150", "hough 1 0.0175 80 80 10"}, proc.Calls())
	})

	t.Run("vertical and steep segments are ignored", func(t *testing.T) {
		proc := &visiontest.Processor{Segments: []vision.Segment{
			{X1: 0, Y1: 0, X2: 0, Y2: 100},
			{X1: 0, Y1: 0, X2: 10, Y2: 100},
		}}
		_, angle, err := NewLocator(proc).Deskew(frame)
		require.NoError(t, err)
		assert.Zero(t, angle)
		assert.Empty(t, proc.Rotations())
	})

	t.Run("median below half a degree is noise", func(t *testing.T) {
		proc := &visiontest.Processor{Segments: []vision.Segment{
			{X1: 0, Y1: 0, X2: 100, Y2: 10},
			{X1: 0, Y1: 0, X2: 100, Y2: 0},
			{X1: 0, Y1: 0, X2: 100, Y2: -5},
		}}
		_, angle, err := NewLocator(proc).Deskew(frame)
		require.NoError(t, err)
		assert.Zero(t, angle)
		assert.Empty(t, proc.Rotations())
	})

	t.Run("even count rotates by mean of middle angles", func(t *testing.T) {
		proc := &visiontest.Processor{Segments: []vision.Segment{
			{X1: 0, Y1: 0, X2: 100, Y2: 3},
			{X1: 0, Y1: 0, X2: 100, Y2: 2},
			{X1: 0, Y1: 0, X2: 100, Y2: 4},
			{X1: 0, Y1: 0, X2: 100, Y2: 1},
		}}
		_, angle, err := NewLocator(proc).Deskew(frame)
		require.NoError(t, err)
		assert.InDelta(t, 1.43206, angle, 1e-4)
		require.Len(t, proc.Rotations(), 1)
		assert.InDelta(t, angle, proc.Rotations()[0], 1e-9)
	})

	t.Run("processor failure", func(t *testing.T) {
		proc := &visiontest.Processor{Err: errors.New("boom")}
		_, _, err := NewLocator(proc).Deskew(frame)
		assert.ErrorContains(t, err, "boom")
	})
}

func TestLocate(t *testing.T) {
	t.Run("band at the bottom", func(t *testing.T) {
		frame := visiontest.Band(400, 300, image.Rect(40, 230, 360, 250))

		reg, ok, err := NewLocator(&visiontest.Processor{}).Locate(frame)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, image.Rect(31, 227, 369, 253), reg.Bounds)
		assert.Equal(t, reg.Bounds.Size(), reg.Image.Bounds().Size())
		assert.Greater(t, float64(reg.Bounds.Dx())/float64(reg.Bounds.Dy()), 4.5)
	})

	t.Run("topmost candidate wins", func(t *testing.T) {
		frame := visiontest.Band(400, 300,
			image.Rect(40, 200, 140, 212),
			image.Rect(20, 250, 380, 270),
		)

		reg, ok, err := NewLocator(&visiontest.Processor{}).Locate(frame)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, image.Rect(37, 198, 143, 214), reg.Bounds)
	})

	t.Run("equal top edges pick the widest band", func(t *testing.T) {
		tests := []struct {
			name  string
			bands []image.Rectangle
			want  image.Rectangle
		}{
			{
				name:  "wider band on the right",
				bands: []image.Rectangle{image.Rect(10, 240, 120, 252), image.Rect(200, 240, 390, 252)},
				want:  image.Rect(195, 238, 395, 254),
			},
			{
				name:  "wider band on the left",
				bands: []image.Rectangle{image.Rect(10, 240, 200, 252), image.Rect(280, 240, 390, 252)},
				want:  image.Rect(5, 238, 205, 254),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				frame := visiontest.Band(400, 300, tt.bands...)

				reg, ok, err := NewLocator(&visiontest.Processor{}).Locate(frame)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, tt.want, reg.Bounds)
			})
		}
	})

	t.Run("padding is clipped to the frame", func(t *testing.T) {
		frame := visiontest.Band(400, 300, image.Rect(0, 280, 400, 300))

		reg, ok, err := NewLocator(&visiontest.Processor{}).Locate(frame)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, image.Rect(0, 277, 400, 300), reg.Bounds)
	})

	t.Run("full frame pass below the first third", func(t *testing.T) {
		frame := visiontest.Band(400, 300, image.Rect(40, 110, 360, 130))
		proc := &visiontest.Processor{}

		reg, ok, err := NewLocator(proc).Locate(frame)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, image.Rect(31, 107, 369, 133), reg.Bounds)
		assert.Contains(t, proc.Calls(), "close 50x8")
	})

	t.Run("band in the first third is rejected", func(t *testing.T) {
		frame := visiontest.Band(400, 300, image.Rect(40, 40, 360, 60))

		_, ok, err := NewLocator(&visiontest.Processor{}).Locate(frame)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("square blob is not a band", func(t *testing.T) {
		frame := visiontest.Band(400, 300, image.Rect(100, 200, 160, 260))

		_, ok, err := NewLocator(&visiontest.Processor{}).Locate(frame)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bottom fraction option", func(t *testing.T) {
		frame := visiontest.Band(400, 300, image.Rect(40, 110, 360, 130))
		proc := &visiontest.Processor{}

		reg, ok, err := NewLocator(proc, WithBottomFraction(0.7)).Locate(frame)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, image.Rect(31, 107, 369, 133), reg.Bounds)
		assert.NotContains(t, proc.Calls(), "close 50x8")
	})
}

func TestFallbackCrop(t *testing.T) {
	frame := visiontest.Band(200, 300)

	reg := FallbackCrop(frame)

	assert.Equal(t, image.Rect(0, 174, 200, 300), reg.Bounds)
	assert.Equal(t, image.Pt(200, 126), reg.Image.Bounds().Size())
}

func TestEnhance(t *testing.T) {
	proc := &visiontest.Processor{}
	band := visiontest.Band(50, 10, image.Rect(0, 0, 25, 10))

	out, err := NewEnhancer(proc).Enhance(band)
	require.NoError(t, err)

	assert.Equal(t, []string{"grayscale", "clahe 2.5 8x8", "bilateral 9 75 75", "adaptive 15 9"}, proc.Calls())
	assert.Equal(t, image.Pt(50, 10), out.Bounds().Size())
	assert.Equal(t, uint8(0), out.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), out.RGBAAt(40, 0).R)
}
