package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerWithoutBoxIsNoop(t *testing.T) {
	tr := NewTracker(DefaultScaleBounds, 30)
	tr.PointerDown(Point{X: 10, Y: 10}, false)
	tr.PointerMove(Point{X: 400, Y: 400})
	tr.PointerUp()

	assert.Equal(t, Position{X: 50, Y: 50}, tr.Position())
	assert.Equal(t, 30.0, tr.Scale())
}

func TestTrackerDragReleasedOutsideKeepsLastPosition(t *testing.T) {
	tr := NewTracker(DefaultScaleBounds, 30)
	tr.SetBox(Rect{Width: 200, Height: 100})

	tr.PointerDown(Point{X: 100, Y: 50}, false)
	tr.PointerMove(Point{X: 150, Y: 75})
	assert.Equal(t, Position{X: 75, Y: 75}, tr.Position())

	tr.PointerMove(Point{X: 900, Y: -300})
	want := Position{X: 100, Y: 0}
	assert.Equal(t, want, tr.Position())

	tr.PointerUp()
	assert.Equal(t, want, tr.Position())

	// moves after release are ignored
	tr.PointerMove(Point{X: 0, Y: 0})
	assert.Equal(t, want, tr.Position())
}

func TestTrackerResize(t *testing.T) {
	tr := NewTracker(ScaleBounds{Min: 10, Max: 90}, 30)
	tr.SetBox(Rect{Width: 200, Height: 100})

	tr.PointerDown(Point{X: 130, Y: 50}, true)
	tr.PointerMove(Point{X: 150, Y: 50})
	assert.InDelta(t, 50, tr.Scale(), 1e-9)

	tr.PointerMove(Point{X: 101, Y: 50})
	assert.Equal(t, 10.0, tr.Scale())
	tr.PointerUp()

	d := tr.Descriptor(45, 0.5)
	assert.Equal(t, Descriptor{X: 50, Y: 50, Scale: 10, Rotation: 45, Opacity: 0.5}, d)
}

func TestTrackerClearingBoxStopsGesture(t *testing.T) {
	tr := NewTracker(DefaultScaleBounds, 20)
	tr.SetBox(Rect{Width: 100, Height: 100})
	tr.PointerDown(Point{X: 50, Y: 50}, false)
	tr.SetBox(Rect{})
	tr.PointerMove(Point{X: 90, Y: 90})
	assert.Equal(t, Position{X: 50, Y: 50}, tr.Position())
}
