// Package raster decodes source images and renders the mosaic canvas in the requested format.
package raster

import (
	"bytes"
	"fmt"
	"image"

	"mosaic/internal/core/domain"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	// registers the "webp" format with image.Decode and image.DecodeConfig
	_ "golang.org/x/image/webp"
)

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegPrefix   = []byte{0xff, 0xd8, 0xff}
)

// Sniff detects the container format from the leading bytes of data.
func Sniff(data []byte) (domain.SourceFormat, bool) {
	switch {
	case bytes.HasPrefix(data, jpegPrefix):
		return domain.SourceJPEG, true
	case bytes.HasPrefix(data, pngSignature):
		return domain.SourcePNG, true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return domain.SourceGIF, true
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return domain.SourceWebP, true
	}
	return "", false
}

type Decoder struct {
	maxDimension int
}

// NewDecoder rejects sources wider or taller than maxDimension. Zero disables the check.
func NewDecoder(maxDimension int) *Decoder {
	return &Decoder{maxDimension: maxDimension}
}

// Decode reads data as an image. Animated sources yield their first frame.
func (d *Decoder) Decode(ref string, data []byte) (*domain.SourceImage, error) {
	format, ok := Sniff(data)
	if !ok {
		return nil, &domain.DecodeError{Kind: domain.DecodeUnsupportedFormat, Ref: ref}
	}

	// header only, so oversized sources are rejected before any pixel is allocated
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.DecodeError{Kind: domain.DecodeCorrupt, Ref: ref, Err: err}
	}

	if err := d.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, &domain.DecodeError{Kind: kindOf(err), Ref: ref, Err: err}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &domain.DecodeError{Kind: domain.DecodeCorrupt, Ref: ref, Err: err}
	}

	pixels := toNRGBA(img)
	b := pixels.Bounds()
	if err := d.checkDimensions(b.Dx(), b.Dy()); err != nil {
		return nil, &domain.DecodeError{Kind: kindOf(err), Ref: ref, Err: err}
	}

	log.Debug().Str("ref", ref).Str("format", string(format)).
		Int("width", b.Dx()).Int("height", b.Dy()).Msg("decoded source image")

	return &domain.SourceImage{
		Ref:    ref,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: pixels,
	}, nil
}

type dimensionError struct {
	width, height int
	tooLarge      bool
}

func (e *dimensionError) Error() string {
	return fmt.Sprintf("unusable dimensions %dx%d", e.width, e.height)
}

func (d *Decoder) checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return &dimensionError{width: w, height: h}
	}
	if d.maxDimension > 0 && (w > d.maxDimension || h > d.maxDimension) {
		return &dimensionError{width: w, height: h, tooLarge: true}
	}
	return nil
}

func kindOf(err error) domain.DecodeErrorKind {
	if de, ok := err.(*dimensionError); ok && de.tooLarge {
		return domain.DecodeDimensionTooLarge
	}
	return domain.DecodeCorrupt
}

// toNRGBA normalizes any decoded image to 8-bit non-premultiplied RGBA anchored at (0,0).
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
