// Package lumen runs the per-frame transformation, culling and cascaded
// shadow pipeline over the core, shadow and pick packages.
package lumen

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCascades is the usual cascade count for a desktop scene.
const DefaultCascades = 3

// Config fixes the camera and shadow parameters at setup time. Validate
// fails fast on a bad configuration instead of clamping: these are
// programming mistakes, not runtime conditions.
type Config struct {
	FovYDeg float32
	ZNear   float32
	ZFar    float32

	// CascadeBoundaries lists each cascade's far distance, strictly
	// increasing, ending exactly at ZFar so the splits cover the whole
	// depth range with no gap.
	CascadeBoundaries []float32

	// ShadowMapResolution is the cascade depth texture edge in texels. It
	// does not enter any of the math here; it sizes the gpu backend's
	// textures.
	ShadowMapResolution int
}

// DefaultConfig mirrors the usual outdoor-scene setup: 60 degree vertical
// field of view, three cascades concentrated near the camera.
func DefaultConfig() Config {
	zFar := float32(1000)
	return Config{
		FovYDeg:             60,
		ZNear:               0.1,
		ZFar:                zFar,
		CascadeBoundaries:   []float32{zFar / 20, zFar / 10, zFar},
		ShadowMapResolution: 2048,
	}
}

// FovY returns the field of view in radians, the unit the matrix builders
// take.
func (c Config) FovY() float32 {
	return mgl32.DegToRad(c.FovYDeg)
}

// Validate checks every setup invariant and names the violated one.
func (c Config) Validate() error {
	if c.ZNear <= 0 {
		return fmt.Errorf("config: zNear must be > 0, got %g", c.ZNear)
	}
	if c.ZFar <= c.ZNear {
		return fmt.Errorf("config: zFar (%g) must exceed zNear (%g)", c.ZFar, c.ZNear)
	}
	if c.FovYDeg <= 0 || c.FovYDeg >= 180 {
		return fmt.Errorf("config: fovY must be in (0, 180) degrees, got %g", c.FovYDeg)
	}
	if len(c.CascadeBoundaries) == 0 {
		return fmt.Errorf("config: at least one shadow cascade is required")
	}
	prev := c.ZNear
	for i, b := range c.CascadeBoundaries {
		if b <= prev {
			return fmt.Errorf("config: split boundaries not monotonically increasing at index %d (%g after %g)", i, b, prev)
		}
		prev = b
	}
	last := c.CascadeBoundaries[len(c.CascadeBoundaries)-1]
	if last != c.ZFar {
		return fmt.Errorf("config: last split boundary (%g) must equal zFar (%g)", last, c.ZFar)
	}
	if c.ShadowMapResolution <= 0 {
		return fmt.Errorf("config: shadow map resolution must be > 0, got %d", c.ShadowMapResolution)
	}
	return nil
}

// BoundariesFromFractions converts fractions of zFar (strictly increasing,
// last == 1) into absolute cascade boundaries.
func BoundariesFromFractions(zFar float32, fractions []float32) []float32 {
	out := make([]float32, len(fractions))
	for i, f := range fractions {
		out[i] = f * zFar
	}
	return out
}
