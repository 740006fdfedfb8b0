package domain

const (
	MinImages = 2
	MaxImages = 4
)

// Format is the requested output encoding of a mosaic.
type Format string

const (
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

func (f Format) ContentType() string {
	switch f {
	case WebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// SourceFormat is the container format detected on a fetched source image.
type SourceFormat string

const (
	SourceJPEG SourceFormat = "jpeg"
	SourcePNG  SourceFormat = "png"
	SourceWebP SourceFormat = "webp"
	SourceGIF  SourceFormat = "gif"
)
