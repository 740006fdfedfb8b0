package port

import (
	"context"

	"mosaic/internal/core/domain"
)

type MosaicCreator interface {
	// Create fetches, lays out and encodes the images of req into a single picture.
	Create(ctx context.Context, req domain.MosaicRequest) (domain.EncodedOutput, error)
}
