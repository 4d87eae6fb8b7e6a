// Package overlay maps user-placed overlays (signatures, stamps, text boxes)
// between three coordinate spaces:
//
//   - pointer pixels, relative to the viewport (origin top-left, Y down)
//   - normalized percentages of the displayed page box (0..100 on both axes)
//   - PDF page points (origin bottom-left, Y up)
//
// Positions are the overlay center. Scale is the overlay width as a percentage
// of the page width.
//
// All functions are pure; Tracker wraps them for pointer-down/move/up event
// streams.
package overlay

import "math"

// Point is a pointer position in pixels.
type Point struct {
	X, Y float64
}

// Rect is the displayed page box in pixels.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether the box has no area, e.g. no page is loaded yet.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Position is a normalized position in percent of the display box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragOffset is the pixel distance between the pointer and the overlay anchor
// recorded when a drag starts.
type DragOffset struct {
	X, Y float64
}

// ScaleBounds limits the overlay width percentage.
type ScaleBounds struct {
	Min float64
	Max float64
}

// DefaultScaleBounds matches the signature and image stamp tools.
var DefaultScaleBounds = ScaleBounds{Min: 5, Max: 100}

// Clamp returns s limited to the bounds. A non-positive minimum is raised to
// a small positive value so that a scale is never zero.
func (b ScaleBounds) Clamp(s float64) float64 {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = minScale
	}
	if hi < lo {
		hi = lo
	}
	if math.IsNaN(s) {
		return lo
	}
	return clamp(s, lo, hi)
}

const minScale = 0.1

// Size is a page size in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageRect is an overlay rectangle in page points. X, Y is the lower-left
// corner.
type PageRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center of the rectangle in page points.
func (r PageRect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// BeginDrag records the offset between the pointer and the overlay's current
// anchor so that subsequent moves keep that offset instead of snapping the
// overlay center to the pointer.
func BeginDrag(pointer Point, box Rect, current Position) DragOffset {
	if box.Empty() {
		return DragOffset{}
	}
	ax := box.X + current.X/100*box.Width
	ay := box.Y + current.Y/100*box.Height
	return DragOffset{X: pointer.X - ax, Y: pointer.Y - ay}
}

// Move converts a pointer position into a normalized overlay position, keeping
// the drag offset. The result is clamped to [0,100] on both axes. ok is false
// when box is empty; callers keep their current position in that case.
func Move(pointer Point, box Rect, offset DragOffset) (pos Position, ok bool) {
	if box.Empty() {
		return Position{}, false
	}
	x := (pointer.X - offset.X - box.X) / box.Width * 100
	y := (pointer.Y - offset.Y - box.Y) / box.Height * 100
	return Position{X: clamp(x, 0, 100), Y: clamp(y, 0, 100)}, true
}

// Resize derives a new width percentage from twice the pixel distance between
// the pointer and the overlay anchor, clamped to bounds. ok is false when box
// is empty.
//
// Only the horizontal distance counts: the scale is a width percentage and
// the resize handle sits on the overlay's side, so vertical pointer movement
// along the handle leaves the width unchanged.
func Resize(pointer Point, box Rect, anchor Position, bounds ScaleBounds) (scale float64, ok bool) {
	if box.Empty() {
		return 0, false
	}
	ax := box.X + anchor.X/100*box.Width
	width := 2 * math.Abs(pointer.X-ax)
	return bounds.Clamp(width / box.Width * 100), true
}

// ToPageCoordinates converts a normalized center position and width
// percentage into a rectangle in page points. aspect is the overlay's
// width/height ratio; non-positive values are treated as square.
//
// The vertical axis is flipped: screen Y grows downwards, page Y upwards.
func ToPageCoordinates(pos Position, scale float64, page Size, aspect float64) PageRect {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	w := scale / 100 * page.Width
	h := w / aspect
	return PageRect{
		X:      pos.X/100*page.Width - w/2,
		Y:      page.Height - pos.Y/100*page.Height - h/2,
		Width:  w,
		Height: h,
	}
}

// FromPageCoordinates is the inverse of ToPageCoordinates. It returns the
// normalized center position and width percentage of rect on page.
func FromPageCoordinates(rect PageRect, page Size) (Position, float64) {
	if page.Width <= 0 || page.Height <= 0 {
		return Position{}, 0
	}
	cx, cy := rect.Center()
	return Position{
		X: cx / page.Width * 100,
		Y: (page.Height - cy) / page.Height * 100,
	}, rect.Width / page.Width * 100
}
