package raster

import (
	"bytes"
	"fmt"
	"image"

	"mosaic/internal/core/domain"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

type Encoder struct {
	jpegQuality int
	webpQuality int
}

func NewEncoder(jpegQuality, webpQuality int) *Encoder {
	return &Encoder{jpegQuality: clampQuality(jpegQuality), webpQuality: clampQuality(webpQuality)}
}

func (e *Encoder) Encode(canvas image.Image, format domain.Format) (domain.EncodedOutput, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case domain.JPEG:
		err = imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(e.jpegQuality))
	case domain.WebP:
		err = webp.Encode(&buf, canvas, &webp.Options{Lossless: false, Quality: float32(e.webpQuality)})
	default:
		err = fmt.Errorf("no encoder for %q", format)
	}

	if err != nil {
		return domain.EncodedOutput{}, &domain.EncodeError{Format: format, Err: err}
	}

	return domain.EncodedOutput{
		ContentType: format.ContentType(),
		Bytes:       buf.Bytes(),
	}, nil
}

func clampQuality(q int) int {
	return min(max(q, 1), 100)
}
