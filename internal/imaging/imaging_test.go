package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTransparentPNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestProcessJPEG(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(100, 60)))
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", photo.MIME)
	assert.NotEmpty(t, photo.Data)
	assert.Equal(t, 100, photo.Width)
	assert.Equal(t, 60, photo.Height)
}

func TestProcessPNGFlattensTransparency(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTransparentPNG(20, 20)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", photo.MIME)

	r, g, b, _ := decode(t, photo.Data).At(10, 10).RGBA()
	// Fully transparent pixels end up white, give or take JPEG noise.
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestProcessDownscale(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(2000, 1000)))
	require.NoError(t, err)

	bounds := decode(t, photo.Data).Bounds()
	assert.Equal(t, MaxDimension, bounds.Dx())
	assert.Equal(t, MaxDimension/2, bounds.Dy())
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(50, 50)))
	require.NoError(t, err)

	bounds := decode(t, photo.Data).Bounds()
	assert.Equal(t, 50, bounds.Dx())
	assert.Equal(t, 50, bounds.Dy())
}

func TestProcessRejects(t *testing.T) {
	_, err := Process(bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Process(bytes.NewReader([]byte("GIF89a...")))
	assert.ErrorIs(t, err, ErrUnsupported)

	// Right magic bytes, broken body.
	_, err = Process(bytes.NewReader([]byte("\x89PNG\r\n\x1a\n broken")))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestProcessTooLarge(t *testing.T) {
	_, err := Process(bytes.NewReader(make([]byte, MaxUploadBytes+1)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{100, 100, 100, 100},
		{1600, 800, 800, 400},
		{800, 1600, 400, 800},
		{10000, 5, 800, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, 800)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}
