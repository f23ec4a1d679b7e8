package pick

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
)

func TestIntersectAABB(t *testing.T) {
	tests := []struct {
		name     string
		ray      Ray
		min, max mgl32.Vec3
		wantNear float32
		wantOK   bool
	}{
		{
			name:     "straight hit",
			ray:      Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}},
			min:      mgl32.Vec3{-1, -1, 4},
			max:      mgl32.Vec3{1, 1, 6},
			wantNear: 4,
			wantOK:   true,
		},
		{
			name:   "miss to the side",
			ray:    Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}},
			min:    mgl32.Vec3{2, -1, 4},
			max:    mgl32.Vec3{4, 1, 6},
			wantOK: false,
		},
		{
			name:     "origin inside the box",
			ray:      Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, 1}},
			min:      mgl32.Vec3{-1, -1, 4},
			max:      mgl32.Vec3{1, 1, 6},
			wantNear: -1,
			wantOK:   true,
		},
		{
			name:   "box entirely behind the origin",
			ray:    Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, 1}},
			min:    mgl32.Vec3{-1, -1, 4},
			max:    mgl32.Vec3{1, 1, 6},
			wantOK: false,
		},
		{
			name:     "negative direction component",
			ray:      Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}},
			min:      mgl32.Vec3{-1, -1, 4},
			max:      mgl32.Vec3{1, 1, 6},
			wantNear: 4,
			wantOK:   true,
		},
		{
			name:   "parallel to a slab outside it",
			ray:    Ray{Origin: mgl32.Vec3{5, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}},
			min:    mgl32.Vec3{-1, -1, 4},
			max:    mgl32.Vec3{1, 1, 6},
			wantOK: false,
		},
		{
			name:     "parallel to a slab inside it",
			ray:      Ray{Origin: mgl32.Vec3{0.5, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}},
			min:      mgl32.Vec3{-1, -1, 4},
			max:      mgl32.Vec3{1, 1, 6},
			wantNear: 4,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			near, far, ok := IntersectAABB(tt.ray, tt.min, tt.max)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if mgl32.Abs(near-tt.wantNear) > 1e-5 {
				t.Errorf("tNear = %g, want %g", near, tt.wantNear)
			}
			if far < near {
				t.Errorf("tFar %g precedes tNear %g", far, near)
			}
		})
	}
}

func TestSelectClosest(t *testing.T) {
	near := core.NewEntity("near")
	near.Position = mgl32.Vec3{0, 0, 5}
	far := core.NewEntity("far")
	far.Position = mgl32.Vec3{0, 0, 10}
	far.Selected = true // stale from an earlier pick

	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}}

	hit := SelectClosest([]*core.Entity{far, near}, ray)
	if hit != near {
		t.Fatal("the nearer entity must win regardless of list order")
	}
	if !near.Selected || far.Selected {
		t.Error("exactly the hit entity should be selected")
	}

	// Same result with the list reversed.
	near.Selected, far.Selected = false, true
	if hit := SelectClosest([]*core.Entity{near, far}, ray); hit != near {
		t.Fatal("selection must be order independent")
	}
}

func TestSelectClosestMissClearsSelection(t *testing.T) {
	e := core.NewEntity("m")
	e.Position = mgl32.Vec3{0, 0, 5}
	e.Selected = true

	away := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 1, 0}}
	if hit := SelectClosest([]*core.Entity{e}, away); hit != nil {
		t.Fatal("ray pointing away must miss")
	}
	if e.Selected {
		t.Error("a miss must clear the previous selection")
	}
}

func TestSelectClosestUsesEntityScale(t *testing.T) {
	e := core.NewEntity("m")
	e.Position = mgl32.Vec3{3, 0, 5}
	e.Scale = 1

	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}}
	if SelectClosest([]*core.Entity{e}, ray) != nil {
		t.Fatal("unit box at x=3 should miss a ray along +Z")
	}

	e.Scale = 4
	if SelectClosest([]*core.Entity{e}, ray) != e {
		t.Fatal("scaled-up box should be hit")
	}
}

func TestFromCamera(t *testing.T) {
	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{1, 2, 3}

	ray := FromCamera(cam)
	if ray.Origin != cam.Position {
		t.Errorf("ray origin %v should be the camera position", ray.Origin)
	}
	if !ray.Direction.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("default camera ray should face -Z, got %v", ray.Direction)
	}
}
