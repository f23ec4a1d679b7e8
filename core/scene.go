package core

// Scene owns the entity list and the per-frame visible subset. Single
// threaded: all mutation happens on the frame loop, the frame boundary is
// the unit of consistency.
type Scene struct {
	Entities []*Entity
	Visible  []*Entity
}

func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) Add(entities ...*Entity) {
	s.Entities = append(s.Entities, entities...)
}

func (s *Scene) Remove(e *Entity) {
	for i, other := range s.Entities {
		if other == e {
			s.Entities = append(s.Entities[:i], s.Entities[i+1:]...)
			return
		}
	}
}

// Cull refreshes the visibility flags against the frustum and rebuilds the
// Visible list. Clears but keeps capacity, the slice is reused every frame.
func (s *Scene) Cull(f *Frustum, meshRadius func(MeshID) float32) {
	f.FilterEntities(s.Entities, meshRadius)

	s.Visible = s.Visible[:0]
	for _, e := range s.Entities {
		if e.InsideFrustum {
			s.Visible = append(s.Visible, e)
		}
	}
}
