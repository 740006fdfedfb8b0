package domain

import "image"

// MosaicRequest is a validated mosaic request. ImageRefs order decides slot assignment.
type MosaicRequest struct {
	Format    Format
	ContextID string
	ImageRefs []string
}

type SourceImage struct {
	Ref    string
	Format SourceFormat
	Width  int
	Height int
	Pixels *image.NRGBA
}

func (s *SourceImage) Size() Size {
	return Size{Width: s.Width, Height: s.Height}
}

type Size struct {
	Width  int
	Height int
}

// Aspect returns width divided by height.
func (s Size) Aspect() float64 {
	return float64(s.Width) / float64(s.Height)
}

type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Cell places the image at Slot into Dest after cutting SourceCrop out of it.
type Cell struct {
	Slot       int
	Dest       Rect
	SourceCrop Rect
}

type LayoutPlan struct {
	CanvasWidth  int
	CanvasHeight int
	Cells        []Cell
}

type EncodedOutput struct {
	ContentType string
	Bytes       []byte
}
