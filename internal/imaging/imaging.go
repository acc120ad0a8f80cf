// Package imaging prepares uploaded item photos for storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// MaxDimension is the maximum width or height of a stored photo.
	MaxDimension = 800
	// MaxUploadBytes caps the size of an uploaded photo.
	MaxUploadBytes = 8 << 20
	// JPEGQuality is the compression quality for stored photos.
	JPEGQuality = 82
)

var (
	ErrTooLarge    = errors.New("image is too large")
	ErrUnsupported = errors.New("unsupported image format")
)

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Photo is a processed item photo.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process reads an uploaded photo, checks its format by sniffing bytes,
// flattens transparency onto white, downscales it to MaxDimension and
// re-encodes it as JPEG.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxUploadBytes)
	}

	// Client headers are not trusted.
	detected := http.DetectContentType(data)
	decode, ok := decoders[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s (JPEG, PNG or WebP accepted)", ErrUnsupported, detected)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnsupported, detected, err)
	}

	out := flatten(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := out.Bounds()
	return &Photo{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fitWithin returns w x h scaled down so neither side exceeds maxDim.
func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

// flatten draws img onto a white canvas no larger than maxDim, using
// Catmull-Rom interpolation when it has to shrink.
func flatten(img image.Image, maxDim int) *image.RGBA {
	src := img.Bounds()
	w, h := fitWithin(src.Dx(), src.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	}
	return dst
}
