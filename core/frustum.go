package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane indices within Frustum.Planes.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Frustum holds the six clip planes of the camera volume as (A, B, C, D)
// with Ax+By+Cz+D=0 and normals pointing inward, so a uniform
// "positive distance means inside" test works for all six. Recomputed every
// frame from the combined projection*view matrix; nothing persists between
// frames.
type Frustum struct {
	Planes [6]mgl32.Vec4
}

// Update extracts the planes from proj*view using the Gribb-Hartmann row
// combinations and normalizes them so signed distances are in world units.
func (f *Frustum) Update(proj, view mgl32.Mat4) {
	vp := proj.Mul4(view)

	// Left: row3 + row0, Right: row3 - row0
	f.Planes[PlaneLeft] = planeRow(vp, 0, +1)
	f.Planes[PlaneRight] = planeRow(vp, 0, -1)
	// Bottom: row3 + row1, Top: row3 - row1
	f.Planes[PlaneBottom] = planeRow(vp, 1, +1)
	f.Planes[PlaneTop] = planeRow(vp, 1, -1)
	// Near: row3 + row2, Far: row3 - row2 (GL-style -1..1 clip depth)
	f.Planes[PlaneNear] = planeRow(vp, 2, +1)
	f.Planes[PlaneFar] = planeRow(vp, 2, -1)

	for i := range f.Planes {
		p := f.Planes[i]
		length := math32.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if length > 0 {
			f.Planes[i] = p.Mul(1.0 / length)
		}
	}
}

func planeRow(vp mgl32.Mat4, row int, sign float32) mgl32.Vec4 {
	return mgl32.Vec4{
		vp.At(3, 0) + sign*vp.At(row, 0),
		vp.At(3, 1) + sign*vp.At(row, 1),
		vp.At(3, 2) + sign*vp.At(row, 2),
		vp.At(3, 3) + sign*vp.At(row, 3),
	}
}

// SphereVisible reports whether a bounding sphere may intersect the
// frustum. The sphere is rejected only when some plane puts it entirely
// outside; false positives near edges are acceptable, false negatives are
// not. A zero or negative radius degrades to a point test.
func (f *Frustum) SphereVisible(center mgl32.Vec3, radius float32) bool {
	if radius < 0 {
		radius = 0
	}
	for i := range f.Planes {
		p := f.Planes[i]
		dist := p[0]*center[0] + p[1]*center[1] + p[2]*center[2] + p[3]
		if dist <= -radius {
			return false
		}
	}
	return true
}

// FilterEntities refreshes every entity's InsideFrustum flag. The
// world-space radius is the mesh's model-space radius scaled by the entity,
// computed here at test time so scale changes take effect immediately.
// Must run after Update and before any render batching that frame.
func (f *Frustum) FilterEntities(entities []*Entity, meshRadius func(MeshID) float32) {
	for _, e := range entities {
		if e.DisableFrustumCulling {
			e.InsideFrustum = true
			continue
		}
		e.InsideFrustum = f.SphereVisible(e.Position, meshRadius(e.Mesh)*e.Scale)
	}
}
