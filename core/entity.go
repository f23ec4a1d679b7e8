package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MeshID refers to a mesh owned by an assets registry. Many entities may
// share one mesh; the mesh outlives any single entity.
type MeshID string

// Entity is one placeable object in the scene. It carries transform state
// and per-frame flags; it never owns GPU resources.
type Entity struct {
	Mesh     MeshID
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler angles in degrees, applied X, Y, Z
	Scale    float32

	// InsideFrustum is rewritten every frame by the cull pass; render
	// batching reads it, nothing else should write it.
	InsideFrustum bool

	// Selected is maintained by the picking pass.
	Selected bool

	// DisableFrustumCulling keeps the entity in every frame's visible set
	// (skyboxes, always-on markers).
	DisableFrustumCulling bool
}

// NewEntity returns an entity at the origin with unit scale.
func NewEntity(mesh MeshID) *Entity {
	return &Entity{
		Mesh:          mesh,
		Scale:         1,
		InsideFrustum: true,
	}
}

// WorldMatrix builds the entity's current model-to-world matrix.
func (e *Entity) WorldMatrix() mgl32.Mat4 {
	return WorldMatrix(e.Position, e.Rotation, e.Scale)
}
