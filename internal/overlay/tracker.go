package overlay

type mode int

const (
	modeIdle mode = iota
	modeDrag
	modeResize
)

// Tracker turns a stream of pointer events into overlay position and scale
// updates. The zero value is not usable; create one with NewTracker.
//
// While no display box is set every event is ignored. Events are expected
// from a single goroutine.
type Tracker struct {
	box    Rect
	bounds ScaleBounds

	pos   Position
	scale float64

	mode   mode
	offset DragOffset
}

// NewTracker returns a tracker centered on the page with the given initial
// scale.
func NewTracker(bounds ScaleBounds, scale float64) *Tracker {
	return &Tracker{
		bounds: bounds,
		pos:    Position{X: 50, Y: 50},
		scale:  bounds.Clamp(scale),
	}
}

// SetBox updates the displayed page box, e.g. after a layout change. A
// zero box disables the tracker.
func (t *Tracker) SetBox(box Rect) {
	t.box = box
	if box.Empty() {
		t.mode = modeIdle
	}
}

// Position returns the current normalized overlay center.
func (t *Tracker) Position() Position { return t.pos }

// Scale returns the current width percentage.
func (t *Tracker) Scale() float64 { return t.scale }

// Descriptor returns the current placement with the given rotation and
// opacity.
func (t *Tracker) Descriptor(rotation, opacity float64) Descriptor {
	return Descriptor{X: t.pos.X, Y: t.pos.Y, Scale: t.scale, Rotation: rotation, Opacity: opacity}
}

// PointerDown starts a drag, or a resize when resize is true.
func (t *Tracker) PointerDown(p Point, resize bool) {
	if t.box.Empty() {
		return
	}
	if resize {
		t.mode = modeResize
		return
	}
	t.mode = modeDrag
	t.offset = BeginDrag(p, t.box, t.pos)
}

// PointerMove applies the pointer position to the active gesture.
func (t *Tracker) PointerMove(p Point) {
	if t.box.Empty() {
		return
	}
	switch t.mode {
	case modeDrag:
		if pos, ok := Move(p, t.box, t.offset); ok {
			t.pos = pos
		}
	case modeResize:
		if scale, ok := Resize(p, t.box, t.pos, t.bounds); ok {
			t.scale = scale
		}
	}
}

// PointerUp ends the active gesture. The position and scale from the last
// move are kept as they are; the release point itself is not applied.
func (t *Tracker) PointerUp() {
	t.mode = modeIdle
	t.offset = DragOffset{}
}
