package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSceneAddRemove(t *testing.T) {
	s := NewScene()
	a := NewEntity("a")
	b := NewEntity("b")
	c := NewEntity("c")
	s.Add(a, b, c)

	if len(s.Entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(s.Entities))
	}

	s.Remove(b)
	if len(s.Entities) != 2 {
		t.Fatalf("expected 2 entities after remove, got %d", len(s.Entities))
	}
	if s.Entities[0] != a || s.Entities[1] != c {
		t.Error("remove should splice, preserving order")
	}

	// Removing an entity that is not present is a no-op.
	s.Remove(b)
	if len(s.Entities) != 2 {
		t.Error("removing a missing entity should change nothing")
	}
}

func TestSceneCull(t *testing.T) {
	f := testFrustum()
	radius := func(MeshID) float32 { return 1 }

	s := NewScene()
	in := NewEntity("m")
	in.Position = mgl32.Vec3{0, 0, -10}
	out := NewEntity("m")
	out.Position = mgl32.Vec3{0, 0, 50}
	s.Add(in, out)

	s.Cull(f, radius)

	if len(s.Visible) != 1 || s.Visible[0] != in {
		t.Fatalf("visible set should hold exactly the in-view entity, got %d", len(s.Visible))
	}

	// Second cull after movement reuses the slice and stays correct.
	out.Position = mgl32.Vec3{2, 0, -10}
	s.Cull(f, radius)
	if len(s.Visible) != 2 {
		t.Fatalf("expected both entities visible after move, got %d", len(s.Visible))
	}
}
