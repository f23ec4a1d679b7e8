// Package assets owns mesh-level data the renderer core needs: a
// model-space bounding radius per mesh and the geometry behind each opaque
// draw handle.
package assets

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/lumen3d/lumen/core"
)

// MeshAsset is the registry's record for one mesh. Positions and indices
// are retained for GPU upload; Radius is the model-space bounding sphere
// radius, computed once at registration.
type MeshAsset struct {
	Name      string
	Positions []mgl32.Vec3
	Indices   []uint32
	Radius    float32
}

// Registry maps opaque mesh handles to their assets. Meshes are shared:
// many entities may hold the same MeshID and the asset outlives them all.
type Registry struct {
	meshes map[core.MeshID]*MeshAsset
}

func NewRegistry() *Registry {
	return &Registry{
		meshes: make(map[core.MeshID]*MeshAsset),
	}
}

// Register stores a mesh under a fresh handle. The bounding radius is
// computed here, once, in model space; per-entity scaling happens at cull
// time, never baked in, since entity scale may change.
func (r *Registry) Register(name string, positions []mgl32.Vec3, indices []uint32) core.MeshID {
	id := core.MeshID(uuid.NewString())

	var radius float32
	for _, p := range positions {
		if l := p.Len(); l > radius {
			radius = l
		}
	}

	r.meshes[id] = &MeshAsset{
		Name:      name,
		Positions: positions,
		Indices:   indices,
		Radius:    radius,
	}
	return id
}

// Lookup returns the asset behind a handle.
func (r *Registry) Lookup(id core.MeshID) (*MeshAsset, bool) {
	m, ok := r.meshes[id]
	return m, ok
}

// IDs returns every registered handle, in no particular order.
func (r *Registry) IDs() []core.MeshID {
	out := make([]core.MeshID, 0, len(r.meshes))
	for id := range r.meshes {
		out = append(out, id)
	}
	return out
}

// Radius returns the model-space bounding radius, or 0 for an unknown
// handle: an untracked mesh culls as a point rather than failing.
func (r *Registry) Radius(id core.MeshID) float32 {
	if m, ok := r.meshes[id]; ok {
		return m.Radius
	}
	return 0
}

// RadiusFunc adapts the registry to the lookup signature the cull pass
// takes.
func (r *Registry) RadiusFunc() func(core.MeshID) float32 {
	return r.Radius
}
