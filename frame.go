package lumen

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/shadow"
)

// Frame is everything one rendered frame needs from the logic step: the
// camera matrices, the culled entity set, and the cascade data for the
// lighting pass. Valid until the next BuildFrame call.
type Frame struct {
	View mgl32.Mat4
	Proj mgl32.Mat4

	Visible []*core.Entity

	Splits   []shadow.Split
	Cascades []shadow.CascadeUniform

	// ShadowsRendered is true when the depth passes ran this frame; false
	// means the pose cache held and the previous textures are still valid.
	ShadowsRendered bool
}

// Pipeline runs the frame-synchronous sequence: projection and view
// matrices, frustum extraction, entity culling, cascade computation and the
// shadow depth passes. Single threaded, one BuildFrame per frame; camera
// and light are threaded through the calls, never held as ambient state.
type Pipeline struct {
	cfg    Config
	log    Logger
	aspect float32

	frustum core.Frustum
	shadows *shadow.Renderer
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithLogger replaces the default no-op logger.
func WithLogger(l Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline validates cfg once; after that, per-frame code trusts it.
func NewPipeline(cfg Config, backend shadow.Backend, aspect float32, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if aspect <= 0 {
		return nil, fmt.Errorf("pipeline: aspect ratio must be > 0, got %g", aspect)
	}

	p := &Pipeline{
		cfg:     cfg,
		log:     NewNopLogger(),
		aspect:  aspect,
		shadows: shadow.NewRenderer(backend, cfg.ZNear, cfg.CascadeBoundaries, cfg.FovY(), aspect),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetAspect follows a window resize; the next frame recomputes projection
// and cascades.
func (p *Pipeline) SetAspect(aspect float32) {
	if aspect > 0 && aspect != p.aspect {
		p.aspect = aspect
		p.shadows.SetAspect(aspect)
		p.log.Debugf("aspect ratio changed to %g", aspect)
	}
}

// Config returns the validated configuration the pipeline runs with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// BuildFrame runs one frame of logic. Order matters: the frustum must be
// current before the cull, the cull before batching reads the flags, and
// the shadow passes before the lighting pass samples their textures.
// Shadow work is skipped entirely when neither the camera nor the light
// moved since the previous frame.
func (p *Pipeline) BuildFrame(cam *core.Camera, light core.DirectionalLight, scene *core.Scene, meshRadius func(core.MeshID) float32) (*Frame, error) {
	proj := core.ProjectionMatrix(p.cfg.FovY(), p.aspect, p.cfg.ZNear, p.cfg.ZFar)
	view := cam.ViewMatrix()

	p.frustum.Update(proj, view)
	scene.Cull(&p.frustum, meshRadius)

	rendered := false
	if p.shadows.Update(view, light) {
		// Shadow casters come from the full entity list: an object outside
		// the camera frustum can still cast into it.
		if err := p.shadows.Render(scene.Entities); err != nil {
			return nil, fmt.Errorf("shadow passes: %w", err)
		}
		rendered = true
		p.log.Debugf("re-rendered %d shadow cascades", len(p.shadows.Splits()))
	}

	return &Frame{
		View:            view,
		Proj:            proj,
		Visible:         scene.Visible,
		Splits:          p.shadows.Splits(),
		Cascades:        p.shadows.Uniforms(),
		ShadowsRendered: rendered,
	}, nil
}
