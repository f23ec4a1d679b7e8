package shadow

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
)

// CascadeUniform is the typed per-cascade record the lighting pass
// consumes. Fields are fixed at the struct level and uploaded as a block;
// there is no by-name uniform lookup at draw time.
type CascadeUniform struct {
	LightViewProj mgl32.Mat4
	FarPlane      float32
}

// Backend is the depth-only device surface the renderer drives.
// BeginCascade binds cascade i's depth texture as the render target and
// clears it; DrawDepth issues one depth-only draw with the given combined
// transform; EndCascade closes the pass. The gpu package implements this
// over wgpu, tests use a recording fake.
type Backend interface {
	BeginCascade(i int) error
	DrawDepth(mesh core.MeshID, mvp mgl32.Mat4) error
	EndCascade(i int) error
}

// Renderer owns the cascade split state and runs the per-cascade depth
// passes: Idle -> [bind texture i, clear, depth-only draws] per split ->
// Idle. It caches the last camera view and light direction so frames where
// neither moved skip recomputation and re-rendering entirely; the depth
// textures act as the cache payload and nothing else can invalidate them in
// the single-threaded frame model.
type Renderer struct {
	backend Backend

	zNear      float32
	boundaries []float32
	fovY       float32
	aspect     float32

	splits   []Split
	uniforms []CascadeUniform

	lastView  mgl32.Mat4
	lastLight mgl32.Vec3
	havePose  bool
}

// NewRenderer assumes the arguments were validated by the caller's config;
// fovY is in radians, boundaries are the cascades' far distances.
func NewRenderer(backend Backend, zNear float32, boundaries []float32, fovY, aspect float32) *Renderer {
	return &Renderer{
		backend:    backend,
		zNear:      zNear,
		boundaries: boundaries,
		fovY:       fovY,
		aspect:     aspect,
	}
}

// SetAspect invalidates the pose cache; the splits depend on the window
// shape.
func (r *Renderer) SetAspect(aspect float32) {
	if aspect != r.aspect {
		r.aspect = aspect
		r.havePose = false
	}
}

// sameDirection compares normalized directions with an absolute per-axis
// tolerance. Normalizing the same direction from two different magnitudes
// leaves last-bit noise, and that must not count as a light move.
func sameDirection(a, b mgl32.Vec3) bool {
	const tol = 1e-6
	return math32.Abs(a[0]-b[0]) <= tol &&
		math32.Abs(a[1]-b[1]) <= tol &&
		math32.Abs(a[2]-b[2]) <= tol
}

// Update recomputes the cascade splits when the camera pose or light
// direction changed since the last frame, and reports whether the depth
// passes must be re-rendered.
func (r *Renderer) Update(view mgl32.Mat4, light core.DirectionalLight) bool {
	dir := light.Normalized()
	if r.havePose && view == r.lastView && sameDirection(dir, r.lastLight) {
		return false
	}

	r.splits = ComputeCascades(r.zNear, r.boundaries, r.fovY, r.aspect, view, dir)

	r.uniforms = r.uniforms[:0]
	for i := range r.splits {
		r.uniforms = append(r.uniforms, CascadeUniform{
			LightViewProj: r.splits[i].ViewProj(),
			FarPlane:      r.splits[i].Far,
		})
	}

	r.lastView = view
	r.lastLight = dir
	r.havePose = true
	return true
}

// Render runs one depth-only pass per cascade over the given casters. The
// caller passes the full entity list, not the view-culled one: an object
// outside the camera frustum can still throw a shadow into it. A frame
// either completes the whole sequence or fails as a unit; there is no
// partial-cascade state worth presenting.
func (r *Renderer) Render(entities []*core.Entity) error {
	for i := range r.splits {
		if err := r.backend.BeginCascade(i); err != nil {
			return fmt.Errorf("begin cascade %d: %w", i, err)
		}

		vp := r.splits[i].ViewProj()
		for _, e := range entities {
			mvp := vp.Mul4(e.WorldMatrix())
			if err := r.backend.DrawDepth(e.Mesh, mvp); err != nil {
				return fmt.Errorf("cascade %d draw: %w", i, err)
			}
		}

		if err := r.backend.EndCascade(i); err != nil {
			return fmt.Errorf("end cascade %d: %w", i, err)
		}
	}
	return nil
}

// Splits returns the current ordered split sequence, valid until the next
// Update that reports a change.
func (r *Renderer) Splits() []Split {
	return r.splits
}

// Uniforms returns the per-cascade records for the lighting pass.
func (r *Renderer) Uniforms() []CascadeUniform {
	return r.uniforms
}
