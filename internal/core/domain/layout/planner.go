// Package layout decides how 2 to 4 source images share a mosaic canvas. Planning is a
// pure function of the image count and dimensions so the same request path always
// produces the same picture.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"mosaic/internal/core/domain"
)

const (
	// LandscapeThreshold is the aspect ratio (width/height) above which an image, or
	// the mean of a pair, counts as landscape.
	LandscapeThreshold = 1.0
	// GridDownscaleThreshold halves a 2x2 canvas reaching this size on either side.
	GridDownscaleThreshold = 2000
)

var ErrUnplannable = errors.New("cannot plan layout")

type Options struct {
	// Gutter is the spacing in pixels between neighbouring cells. Zero keeps cells contiguous.
	Gutter int
	// MaxCanvas caps the longest canvas side, scaling the whole plan down proportionally.
	// Zero disables the cap.
	MaxCanvas int
}

type arrangement int

const (
	sideBySide arrangement = iota
	stacked
	primaryLeft
	primaryTop
	grid
)

func (a arrangement) String() string {
	switch a {
	case sideBySide:
		return "side-by-side"
	case stacked:
		return "stacked"
	case primaryLeft:
		return "primary-left"
	case primaryTop:
		return "primary-top"
	case grid:
		return "grid"
	}
	return "unknown"
}

type Planner struct {
	opts Options
}

func NewPlanner(opts Options) *Planner {
	if opts.Gutter < 0 {
		opts.Gutter = 0
	}
	if opts.MaxCanvas < 0 {
		opts.MaxCanvas = 0
	}
	return &Planner{opts: opts}
}

// Plan returns the canvas size and one cell per input size, in input order.
func (p *Planner) Plan(sizes []domain.Size) (domain.LayoutPlan, error) {
	if len(sizes) < domain.MinImages || len(sizes) > domain.MaxImages {
		return domain.LayoutPlan{}, fmt.Errorf("%w: %d images", ErrUnplannable, len(sizes))
	}
	for i, s := range sizes {
		if s.Width <= 0 || s.Height <= 0 {
			return domain.LayoutPlan{}, fmt.Errorf("%w: image %d is %dx%d", ErrUnplannable, i, s.Width, s.Height)
		}
	}

	arr, order := arrange(sizes)

	content := contentSize(arr, sizes, order)
	if arr == grid && (content.Width >= GridDownscaleThreshold || content.Height >= GridDownscaleThreshold) {
		content = domain.Size{Width: content.Width / 2, Height: content.Height / 2}
	}
	content = p.capCanvas(content)

	canvas := p.withGutter(arr, content)
	regions := p.regions(arr, canvas)

	cells := make([]domain.Cell, len(order))
	for k, slot := range order {
		cells[k] = domain.Cell{
			Slot:       slot,
			Dest:       regions[k],
			SourceCrop: CenterCrop(sizes[slot], regions[k].Width, regions[k].Height),
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Slot < cells[j].Slot })

	return domain.LayoutPlan{
		CanvasWidth:  canvas.Width,
		CanvasHeight: canvas.Height,
		Cells:        cells,
	}, nil
}

// arrange picks the arrangement and the slot occupying each of its regions in turn.
func arrange(sizes []domain.Size) (arrangement, []int) {
	switch len(sizes) {
	case 2:
		mean := (sizes[0].Aspect() + sizes[1].Aspect()) / 2
		if mean > LandscapeThreshold {
			return stacked, []int{0, 1}
		}
		return sideBySide, []int{0, 1}
	case 3:
		primary := Primary(sizes)
		order := []int{primary}
		for i := range sizes {
			if i != primary {
				order = append(order, i)
			}
		}
		if sizes[primary].Aspect() > LandscapeThreshold {
			return primaryTop, order
		}
		return primaryLeft, order
	default:
		return grid, []int{0, 1, 2, 3}
	}
}

// Primary returns the index of the image closest to square. Ties go to the earliest image.
func Primary(sizes []domain.Size) int {
	best := 0
	bestDeviation := unsquareness(sizes[0])
	for i := 1; i < len(sizes); i++ {
		if d := unsquareness(sizes[i]); d < bestDeviation {
			best, bestDeviation = i, d
		}
	}
	return best
}

// unsquareness is long side over short side, 1 for a square.
func unsquareness(s domain.Size) float64 {
	if s.Width > s.Height {
		return float64(s.Width) / float64(s.Height)
	}
	return float64(s.Height) / float64(s.Width)
}

// contentSize sizes the canvas without gutters so output resolution follows the inputs:
// images sharing a row are scaled to the tallest of them, images sharing a column to the
// widest.
func contentSize(arr arrangement, sizes []domain.Size, order []int) domain.Size {
	switch arr {
	case sideBySide, grid:
		h := maxHeight(sizes)
		var sum float64
		for _, s := range sizes {
			sum += float64(s.Width) * float64(h) / float64(s.Height)
		}
		cellW := atLeast(round(sum/float64(len(sizes))), 1)
		if arr == grid {
			return domain.Size{Width: 2 * cellW, Height: 2 * h}
		}
		return domain.Size{Width: 2 * cellW, Height: h}
	case stacked:
		w := maxWidth(sizes)
		var sum float64
		for _, s := range sizes {
			sum += float64(s.Height) * float64(w) / float64(s.Width)
		}
		cellH := atLeast(round(sum/float64(len(sizes))), 1)
		return domain.Size{Width: w, Height: 2 * cellH}
	case primaryLeft:
		h := maxHeight(sizes)
		p := sizes[order[0]]
		cellW := atLeast(round(float64(p.Width)*float64(h)/float64(p.Height)), 1)
		return domain.Size{Width: 2 * cellW, Height: h}
	case primaryTop:
		w := maxWidth(sizes)
		p := sizes[order[0]]
		cellH := atLeast(round(float64(p.Height)*float64(w)/float64(p.Width)), 1)
		return domain.Size{Width: w, Height: 2 * cellH}
	}
	return domain.Size{}
}

func (p *Planner) capCanvas(s domain.Size) domain.Size {
	longest := max(s.Width, s.Height)
	if p.opts.MaxCanvas == 0 || longest <= p.opts.MaxCanvas {
		return s
	}

	f := float64(p.opts.MaxCanvas) / float64(longest)
	return domain.Size{
		Width:  atLeast(round(float64(s.Width)*f), 2),
		Height: atLeast(round(float64(s.Height)*f), 2),
	}
}

func (p *Planner) withGutter(arr arrangement, s domain.Size) domain.Size {
	g := p.opts.Gutter
	w, h := atLeast(s.Width, 1), atLeast(s.Height, 1)
	switch arr {
	case sideBySide:
		return domain.Size{Width: atLeast(w, 2) + g, Height: h}
	case stacked:
		return domain.Size{Width: w, Height: atLeast(h, 2) + g}
	default:
		return domain.Size{Width: atLeast(w, 2) + g, Height: atLeast(h, 2) + g}
	}
}

// regions cuts the canvas into destination rectangles in placement order.
func (p *Planner) regions(arr arrangement, canvas domain.Size) []domain.Rect {
	full := domain.Rect{Width: canvas.Width, Height: canvas.Height}
	g := p.opts.Gutter

	switch arr {
	case sideBySide:
		left, right := splitX(full, g)
		return []domain.Rect{left, right}
	case stacked:
		top, bottom := splitY(full, g)
		return []domain.Rect{top, bottom}
	case primaryLeft:
		left, right := splitX(full, g)
		rightTop, rightBottom := splitY(right, g)
		return []domain.Rect{left, rightTop, rightBottom}
	case primaryTop:
		top, bottom := splitY(full, g)
		bottomLeft, bottomRight := splitX(bottom, g)
		return []domain.Rect{top, bottomLeft, bottomRight}
	default:
		top, bottom := splitY(full, g)
		topLeft, topRight := splitX(top, g)
		bottomLeft, bottomRight := splitX(bottom, g)
		return []domain.Rect{topLeft, topRight, bottomLeft, bottomRight}
	}
}

// splitX halves r horizontally; an odd leftover pixel goes to the right half.
func splitX(r domain.Rect, gutter int) (domain.Rect, domain.Rect) {
	a := (r.Width - gutter) / 2
	b := r.Width - gutter - a
	return domain.Rect{X: r.X, Y: r.Y, Width: a, Height: r.Height},
		domain.Rect{X: r.X + a + gutter, Y: r.Y, Width: b, Height: r.Height}
}

func splitY(r domain.Rect, gutter int) (domain.Rect, domain.Rect) {
	a := (r.Height - gutter) / 2
	b := r.Height - gutter - a
	return domain.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: a},
		domain.Rect{X: r.X, Y: r.Y + a + gutter, Width: r.Width, Height: b}
}

// CenterCrop returns the largest centred rectangle of src with the cellW:cellH ratio.
func CenterCrop(src domain.Size, cellW, cellH int) domain.Rect {
	if cellW <= 0 || cellH <= 0 {
		return domain.Rect{Width: src.Width, Height: src.Height}
	}

	// compare src.W/src.H with cellW/cellH without dividing
	if int64(src.Width)*int64(cellH) > int64(src.Height)*int64(cellW) {
		w := round(float64(src.Height) * float64(cellW) / float64(cellH))
		w = min(atLeast(w, 1), src.Width)
		return domain.Rect{X: (src.Width - w) / 2, Width: w, Height: src.Height}
	}

	h := round(float64(src.Width) * float64(cellH) / float64(cellW))
	h = min(atLeast(h, 1), src.Height)
	return domain.Rect{Y: (src.Height - h) / 2, Width: src.Width, Height: h}
}

func maxHeight(sizes []domain.Size) int {
	h := 0
	for _, s := range sizes {
		h = max(h, s.Height)
	}
	return h
}

func maxWidth(sizes []domain.Size) int {
	w := 0
	for _, s := range sizes {
		w = max(w, s.Width)
	}
	return w
}

func round(f float64) int {
	return int(math.Round(f))
}

func atLeast(v, floor int) int {
	return max(v, floor)
}
