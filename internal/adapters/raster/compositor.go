package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"mosaic/internal/core/domain"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

type Compositor struct {
	background color.Color
}

// NewCompositor fills canvas area not covered by any cell (gutters) with background.
func NewCompositor(background color.Color) *Compositor {
	if background == nil {
		background = color.Black
	}
	return &Compositor{background: background}
}

func (c *Compositor) Composite(ctx context.Context, images []*domain.SourceImage,
	plan domain.LayoutPlan) (*image.NRGBA, error) {
	if len(images) != len(plan.Cells) {
		return nil, fmt.Errorf("plan has %d cells for %d images", len(plan.Cells), len(images))
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, plan.CanvasWidth, plan.CanvasHeight))

	covered := 0
	for _, cell := range plan.Cells {
		covered += cell.Dest.Area()
	}
	if covered < plan.CanvasWidth*plan.CanvasHeight {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	}

	// cells are disjoint, so each goroutine owns its own region of canvas.Pix
	g, gctx := errgroup.WithContext(ctx)
	for _, cell := range plan.Cells {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if cell.Slot < 0 || cell.Slot >= len(images) {
				return fmt.Errorf("cell references slot %d", cell.Slot)
			}

			paste(canvas, fit(images[cell.Slot].Pixels, cell), cell.Dest)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return canvas, nil
}

// fit centre-crops src as planned and resamples it to the cell size with a triangle filter.
func fit(src *image.NRGBA, cell domain.Cell) *image.NRGBA {
	cropped := src
	if cell.SourceCrop.Image() != src.Bounds() {
		cropped = imaging.Crop(src, cell.SourceCrop.Image())
	}

	b := cropped.Bounds()
	if b.Dx() == cell.Dest.Width && b.Dy() == cell.Dest.Height {
		return cropped
	}

	return imaging.Resize(cropped, cell.Dest.Width, cell.Dest.Height, imaging.Linear)
}

// paste copies tile row by row into dest on canvas. tile must be dest sized and anchored at (0,0).
func paste(canvas, tile *image.NRGBA, dest domain.Rect) {
	rowBytes := dest.Width * 4
	for y := 0; y < dest.Height; y++ {
		dst := canvas.PixOffset(dest.X, dest.Y+y)
		src := tile.PixOffset(0, y)
		copy(canvas.Pix[dst:dst+rowBytes], tile.Pix[src:src+rowBytes])
	}
}
