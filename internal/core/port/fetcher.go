package port

import (
	"context"
)

type ImageFetcher interface {
	// Fetch retrieves the raw bytes of the image identified by ref within the given context identifier.
	// Failures are reported as *domain.FetchError.
	Fetch(ctx context.Context, contextID, ref string) ([]byte, error)
}
