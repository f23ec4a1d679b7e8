package shadow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
)

// recordingBackend captures the pass sequence instead of touching a device.
type recordingBackend struct {
	events []string
	mvps   []mgl32.Mat4

	failBegin bool
	failDraw  bool
}

func (b *recordingBackend) BeginCascade(i int) error {
	if b.failBegin {
		return errors.New("backend down")
	}
	b.events = append(b.events, fmt.Sprintf("begin %d", i))
	return nil
}

func (b *recordingBackend) DrawDepth(mesh core.MeshID, mvp mgl32.Mat4) error {
	if b.failDraw {
		return errors.New("draw failed")
	}
	b.events = append(b.events, fmt.Sprintf("draw %s", mesh))
	b.mvps = append(b.mvps, mvp)
	return nil
}

func (b *recordingBackend) EndCascade(i int) error {
	b.events = append(b.events, fmt.Sprintf("end %d", i))
	return nil
}

func newTestRenderer(b Backend) *Renderer {
	return NewRenderer(b, testNear, []float32{50, 1000}, testFovY, testAspect)
}

func testEntities() []*core.Entity {
	a := core.NewEntity("a")
	a.Position = mgl32.Vec3{0, 0, -10}
	b := core.NewEntity("b")
	b.Position = mgl32.Vec3{5, 0, -30}
	return []*core.Entity{a, b}
}

func TestRenderPassSequence(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(backend)

	if !r.Update(mgl32.Ident4(), core.DirectionalLight{Direction: testLight}) {
		t.Fatal("first update must report a pose change")
	}
	if err := r.Render(testEntities()); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"begin 0", "draw a", "draw b", "end 0",
		"begin 1", "draw a", "draw b", "end 1",
	}
	if len(backend.events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(backend.events), len(want), backend.events)
	}
	for i, e := range want {
		if backend.events[i] != e {
			t.Errorf("event %d = %q, want %q", i, backend.events[i], e)
		}
	}
}

func TestRenderPassesCombinedTransform(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(backend)
	r.Update(mgl32.Ident4(), core.DirectionalLight{Direction: testLight})

	entities := testEntities()
	if err := r.Render(entities); err != nil {
		t.Fatal(err)
	}

	// Draw order is cascade-major: cascade 0 entities first.
	splits := r.Splits()
	idx := 0
	for _, s := range splits {
		vp := s.ViewProj()
		for _, e := range entities {
			want := vp.Mul4(e.WorldMatrix())
			if !backend.mvps[idx].ApproxEqualThreshold(want, 1e-5) {
				t.Errorf("mvp %d does not equal lightVP*world", idx)
			}
			idx++
		}
	}
}

func TestUpdatePoseCache(t *testing.T) {
	r := newTestRenderer(&recordingBackend{})
	view := mgl32.Ident4()
	light := core.DirectionalLight{Direction: testLight}

	if !r.Update(view, light) {
		t.Fatal("first update must recompute")
	}
	if r.Update(view, light) {
		t.Error("unchanged pose must be skipped")
	}

	// Scaled light direction normalizes to the same vector, still cached.
	if r.Update(view, core.DirectionalLight{Direction: testLight.Mul(3)}) {
		t.Error("rescaled light direction is the same pose")
	}

	moved := mgl32.Translate3D(0, 0, -1).Mul4(view)
	if !r.Update(moved, light) {
		t.Error("camera movement must invalidate the cache")
	}
	if !r.Update(moved, core.DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}}) {
		t.Error("light change must invalidate the cache")
	}
}

func TestSetAspectInvalidatesCache(t *testing.T) {
	r := newTestRenderer(&recordingBackend{})
	view := mgl32.Ident4()
	light := core.DirectionalLight{Direction: testLight}

	r.Update(view, light)
	r.SetAspect(testAspect) // unchanged, cache holds
	if r.Update(view, light) {
		t.Error("same aspect should not invalidate")
	}

	r.SetAspect(1.0)
	if !r.Update(view, light) {
		t.Error("aspect change must force a recompute")
	}
}

func TestUniformsMatchSplits(t *testing.T) {
	r := newTestRenderer(&recordingBackend{})
	r.Update(mgl32.Ident4(), core.DirectionalLight{Direction: testLight})

	splits := r.Splits()
	uniforms := r.Uniforms()
	if len(uniforms) != len(splits) {
		t.Fatalf("got %d uniforms for %d splits", len(uniforms), len(splits))
	}
	for i := range splits {
		if uniforms[i].FarPlane != splits[i].Far {
			t.Errorf("uniform %d far plane %g, want %g", i, uniforms[i].FarPlane, splits[i].Far)
		}
		if !uniforms[i].LightViewProj.ApproxEqualThreshold(splits[i].ViewProj(), 1e-6) {
			t.Errorf("uniform %d matrix does not match the split", i)
		}
	}
}

func TestRenderPropagatesBackendErrors(t *testing.T) {
	backend := &recordingBackend{failBegin: true}
	r := newTestRenderer(backend)
	r.Update(mgl32.Ident4(), core.DirectionalLight{Direction: testLight})

	if err := r.Render(testEntities()); err == nil {
		t.Fatal("begin failure must surface")
	}

	backend2 := &recordingBackend{failDraw: true}
	r2 := newTestRenderer(backend2)
	r2.Update(mgl32.Ident4(), core.DirectionalLight{Direction: testLight})
	if err := r2.Render(testEntities()); err == nil {
		t.Fatal("draw failure must surface")
	}
}

func TestRenderBeforeUpdateIsEmpty(t *testing.T) {
	backend := &recordingBackend{}
	r := newTestRenderer(backend)

	// No splits yet: nothing to render, nothing recorded.
	if err := r.Render(testEntities()); err != nil {
		t.Fatal(err)
	}
	if len(backend.events) != 0 {
		t.Errorf("expected no passes before the first update, got %v", backend.events)
	}
}
