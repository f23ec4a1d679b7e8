// Package pick selects scene entities by casting a ray from the camera and
// intersecting it against axis-aligned bounding boxes.
package pick

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
)

// Ray is a world-space picking ray. Direction is expected normalized;
// parametric distances are then world units.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// FromCamera casts a ray from the camera position along its facing
// direction (center-of-screen pick).
func FromCamera(cam *core.Camera) Ray {
	return Ray{Origin: cam.Position, Direction: cam.Forward()}
}

// IntersectAABB runs the slab test against the box [min, max]: the ray hits
// iff the per-axis entry/exit intervals overlap. Returns the near and far
// parametric distances; ok is false when the ray misses or the box lies
// entirely behind the origin.
func IntersectAABB(r Ray, min, max mgl32.Vec3) (tNear, tFar float32, ok bool) {
	tNear = -math32.MaxFloat32
	tFar = math32.MaxFloat32

	for axis := 0; axis < 3; axis++ {
		d := r.Direction[axis]
		if math32.Abs(d) < 1e-9 {
			// Parallel to the slab: inside or miss outright.
			if r.Origin[axis] < min[axis] || r.Origin[axis] > max[axis] {
				return 0, 0, false
			}
			continue
		}

		inv := 1 / d
		t0 := (min[axis] - r.Origin[axis]) * inv
		t1 := (max[axis] - r.Origin[axis]) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return 0, 0, false
		}
	}

	if tFar < 0 {
		return 0, 0, false
	}
	return tNear, tFar, true
}

// SelectClosest intersects the ray with each entity's box (position plus or
// minus scale: the unit half-extent box, scaled) and marks the nearest hit
// selected, clearing the flag on everything else. Returns nil when nothing
// is hit, which clears every selection and is not an error.
//
// Boxes are axis aligned: entity rotation is ignored, this is not an OBB
// test.
func SelectClosest(entities []*core.Entity, ray Ray) *core.Entity {
	closest := float32(math32.MaxFloat32)
	var hit *core.Entity

	for _, e := range entities {
		e.Selected = false

		half := mgl32.Vec3{e.Scale, e.Scale, e.Scale}
		tNear, _, ok := IntersectAABB(ray, e.Position.Sub(half), e.Position.Add(half))
		if ok && tNear < closest {
			closest = tNear
			hit = e
		}
	}

	if hit != nil {
		hit.Selected = true
	}
	return hit
}
