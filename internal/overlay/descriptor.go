package overlay

import (
	"errors"
	"math"
)

var ErrInvalidDescriptor = errors.New("invalid overlay descriptor")

// Descriptor describes a user-placed overlay relative to the displayed page.
// Rotation is in screen degrees, clockwise.
type Descriptor struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

// Position returns the overlay center.
func (d Descriptor) Position() Position {
	return Position{X: d.X, Y: d.Y}
}

// Validate rejects values that cannot be normalized.
func (d Descriptor) Validate() error {
	for _, v := range []float64{d.X, d.Y, d.Scale, d.Rotation, d.Opacity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidDescriptor
		}
	}
	return nil
}

// Normalize clamps the position to [0,100], the scale to bounds and the
// opacity to [0,1], and folds the rotation into [0,360). A zero opacity is
// read as "not set" and becomes fully opaque.
func (d Descriptor) Normalize(bounds ScaleBounds) Descriptor {
	out := Descriptor{
		X:        clamp(d.X, 0, 100),
		Y:        clamp(d.Y, 0, 100),
		Scale:    bounds.Clamp(d.Scale),
		Rotation: NormalizeRotation(d.Rotation),
		Opacity:  d.Opacity,
	}
	if out.Opacity <= 0 {
		out.Opacity = 1
	}
	out.Opacity = clamp(out.Opacity, 0, 1)
	return out
}

// NormalizeRotation folds degrees into [0,360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}
