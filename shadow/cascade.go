package shadow

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultBias is the depth offset applied when comparing a fragment against
// a cascade's depth map, to avoid self-shadowing acne. Tunable, not derived.
const DefaultBias float32 = 0.001

// Split is one cascade of the camera frustum: the camera-space depth range
// it covers, the world-space corners of that sub-frustum, and the light
// matrices fitted around them. One instance per cascade, recomputed each
// frame the camera or light moves.
type Split struct {
	Near, Far float32
	Corners   [8]mgl32.Vec3
	Centroid  mgl32.Vec3
	LightView mgl32.Mat4
	Ortho     mgl32.Mat4
}

// ViewProj is the combined light transform fed to the depth pass and, later,
// to the lighting pass for shadow sampling. The two must agree, so both
// take it from here.
func (s *Split) ViewProj() mgl32.Mat4 {
	return s.Ortho.Mul4(s.LightView)
}

// Clip-space cube corners; near face first.
var ndcCorners = [8]mgl32.Vec4{
	{-1, -1, -1, 1}, {1, -1, -1, 1}, {-1, 1, -1, 1}, {1, 1, -1, 1},
	{-1, -1, 1, 1}, {1, -1, 1, 1}, {-1, 1, 1, 1}, {1, 1, 1, 1},
}

// ComputeSplit derives the light matrices for the cascade covering
// [near, far) of the camera frustum:
//
//  1. a perspective projection for this depth range only, combined with the
//     camera view, gives the split's clip volume;
//  2. the 8 corners come from pushing the clip cube through the inverse;
//  3. the light eye steps back from the corner centroid along the light
//     direction by the split's depth range, so the whole volume lands in
//     front of the light;
//  4. an axis-aligned box around the corners in light space fixes the
//     orthographic extents.
//
// The light view is built from a basis (look-at), not from Euler angles
// recovered with inverse trig, so near-vertical directions stay stable.
func ComputeSplit(near, far, fovY, aspect float32, view mgl32.Mat4, lightDir mgl32.Vec3) Split {
	s := Split{Near: near, Far: far}

	proj := mgl32.Perspective(fovY, aspect, near, far)
	inv := proj.Mul4(view).Inv()

	var centroid mgl32.Vec3
	for i, c := range ndcCorners {
		w := inv.Mul4x1(c)
		p := w.Vec3().Mul(1 / w.W())
		s.Corners[i] = p
		centroid = centroid.Add(p)
	}
	s.Centroid = centroid.Mul(1.0 / 8.0)

	dir := safeDirection(lightDir)
	eye := s.Centroid.Sub(dir.Mul(far - near))
	s.LightView = lookAlong(eye, dir)

	minB := mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	maxB := mgl32.Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	for _, c := range s.Corners {
		lc := s.LightView.Mul4x1(c.Vec4(1)).Vec3()
		for axis := 0; axis < 3; axis++ {
			minB[axis] = math32.Min(minB[axis], lc[axis])
			maxB[axis] = math32.Max(maxB[axis], lc[axis])
		}
	}

	// The light view looks down -Z, so the corners sit at negative light
	// space z; distance in front of the eye spans [-maxZ, -minZ]. Getting
	// this sign wrong silently clips every caster.
	s.Ortho = mgl32.Ortho(minB.X(), maxB.X(), minB.Y(), maxB.Y(), -maxB.Z(), -minB.Z())

	return s
}

// ComputeCascades computes the ordered near-to-far split sequence. The
// boundary slice lists each cascade's far distance; Config.Validate has
// already enforced the strictly-increasing, last-equals-zFar shape, so this
// stays a pure per-frame computation.
func ComputeCascades(zNear float32, boundaries []float32, fovY, aspect float32, view mgl32.Mat4, lightDir mgl32.Vec3) []Split {
	splits := make([]Split, len(boundaries))
	near := zNear
	for i, far := range boundaries {
		splits[i] = ComputeSplit(near, far, fovY, aspect, view, lightDir)
		near = far
	}
	return splits
}

// SelectCascade returns the smallest cascade index whose far plane exceeds
// the fragment's camera-space depth, or -1 when the depth is beyond every
// cascade. Beyond shadow range is not an error: the fragment is fully lit.
// The WGSL lighting shader implements the same rule; see shaders.ForwardWGSL.
func SelectCascade(splits []Split, depth float32) int {
	for i := range splits {
		if depth < splits[i].Far {
			return i
		}
	}
	return -1
}

// Factor is the CPU reference for the shader's shadow comparison: 1 when
// the fragment is lit, 0 when the stored depth says something nearer to the
// light occludes it. bias guards against self-shadowing.
func Factor(storedDepth, fragmentDepth, bias float32) float32 {
	if fragmentDepth-bias > storedDepth {
		return 0
	}
	return 1
}

// safeDirection normalizes d, falling back to straight down when d carries
// no usable direction.
func safeDirection(d mgl32.Vec3) mgl32.Vec3 {
	if d.Len() < 1e-6 {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Normalize()
}

// lookAlong builds a view matrix at eye facing dir, switching the up axis
// away from Y when the direction is near vertical to keep the basis well
// conditioned.
func lookAlong(eye, dir mgl32.Vec3) mgl32.Mat4 {
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Y()) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(eye, eye.Add(dir), up)
}
