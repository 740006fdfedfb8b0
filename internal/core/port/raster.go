package port

import (
	"context"
	"image"

	"mosaic/internal/core/domain"
)

type ImageDecoder interface {
	// Decode sniffs the container format of data and returns the image as 8-bit RGBA.
	// Failures are reported as *domain.DecodeError.
	Decode(ref string, data []byte) (*domain.SourceImage, error)
}

type Compositor interface {
	// Composite draws every image into its planned cell on a fresh canvas. images must be in slot order.
	Composite(ctx context.Context, images []*domain.SourceImage, plan domain.LayoutPlan) (*image.NRGBA, error)
}

type Encoder interface {
	// Encode serializes the canvas in the requested format. Failures are reported as *domain.EncodeError.
	Encode(canvas image.Image, format domain.Format) (domain.EncodedOutput, error)
}

type LayoutPlanner interface {
	// Plan lays out images of the given sizes, in slot order.
	Plan(sizes []domain.Size) (domain.LayoutPlan, error)
}
