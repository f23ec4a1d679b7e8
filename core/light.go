package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalLight is a sun-style light. Only the direction participates in
// shadow projection; color and intensity feed the lighting pass.
type DirectionalLight struct {
	Direction mgl32.Vec3
	Color     [3]float32
	Intensity float32
}

// Normalized returns the unit direction, substituting straight down when
// the vector is too short to carry a direction. That substitution keeps the
// shadow math NaN-free instead of propagating a degenerate input.
func (l DirectionalLight) Normalized() mgl32.Vec3 {
	d := l.Direction
	if d.Len() < 1e-6 {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Normalize()
}
