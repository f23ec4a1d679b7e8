package shadow

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/core"
)

// Baseline scene: camera at the origin looking down -Z, 60 degree FOV,
// 16:9, depth range 0.1 to 1000 over three cascades, sun from above and
// behind.
const (
	testNear   float32 = 0.1
	testFovY           = math32.Pi / 3
	testAspect float32 = 16.0 / 9.0
)

var (
	testBoundaries = []float32{50, 200, 1000}
	testLight      = mgl32.Vec3{-0.5, -1, -0.3}
)

func testSplits() []Split {
	return ComputeCascades(testNear, testBoundaries, testFovY, testAspect, mgl32.Ident4(), testLight)
}

func TestComputeCascadesDepthChain(t *testing.T) {
	splits := testSplits()
	if len(splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(splits))
	}

	near := testNear
	for i, s := range splits {
		if s.Near != near {
			t.Errorf("split %d near = %g, want %g", i, s.Near, near)
		}
		if s.Far != testBoundaries[i] {
			t.Errorf("split %d far = %g, want %g", i, s.Far, testBoundaries[i])
		}
		if s.Far <= s.Near {
			t.Errorf("split %d has empty depth range [%g, %g]", i, s.Near, s.Far)
		}
		near = s.Far
	}
}

func TestComputeSplitCorners(t *testing.T) {
	s := ComputeSplit(1, 100, testFovY, testAspect, mgl32.Ident4(), testLight)

	// With an identity view, world space is camera space: the near face
	// sits at z=-near and the far face at z=-far.
	for i := 0; i < 4; i++ {
		if mgl32.Abs(s.Corners[i].Z()+1) > 1e-3 {
			t.Errorf("near corner %d at z=%g, want -1", i, s.Corners[i].Z())
		}
	}
	for i := 4; i < 8; i++ {
		if mgl32.Abs(s.Corners[i].Z()+100) > 0.1 {
			t.Errorf("far corner %d at z=%g, want -100", i, s.Corners[i].Z())
		}
	}

	// The frustum is symmetric around the view axis.
	if mgl32.Abs(s.Centroid.X()) > 0.05 || mgl32.Abs(s.Centroid.Y()) > 0.05 {
		t.Errorf("centroid %v should sit on the view axis", s.Centroid)
	}
	if s.Centroid.Z() > -1 || s.Centroid.Z() < -100 {
		t.Errorf("centroid z=%g should lie inside the depth range", s.Centroid.Z())
	}
}

func TestLightEyeStepsBackFromCentroid(t *testing.T) {
	s := ComputeSplit(1, 100, testFovY, testAspect, mgl32.Ident4(), testLight)

	// The centroid must land on the light's forward axis at distance
	// far-near: that is the step-back rule.
	lc := s.LightView.Mul4x1(s.Centroid.Vec4(1)).Vec3()
	if mgl32.Abs(lc.X()) > 1e-3 || mgl32.Abs(lc.Y()) > 1e-3 {
		t.Errorf("centroid off the light axis: %v", lc)
	}
	if mgl32.Abs(lc.Z()+99) > 0.1 {
		t.Errorf("centroid at light-space z=%g, want -(far-near)=-99", lc.Z())
	}
}

// Every corner the split was fitted around must survive the combined light
// transform inside the orthographic volume.
func TestSplitCornersInsideOrtho(t *testing.T) {
	for si, s := range testSplits() {
		vp := s.ViewProj()
		for ci, c := range s.Corners {
			ndc := vp.Mul4x1(c.Vec4(1))
			for axis := 0; axis < 3; axis++ {
				if ndc[axis] < -1.001 || ndc[axis] > 1.001 {
					t.Errorf("split %d corner %d ndc[%d]=%g outside [-1,1]", si, ci, axis, ndc[axis])
				}
			}
		}
	}
}

// LightView is a rigid transform, so running a corner into light space and
// back must reproduce it. Tolerance scales with the corner's magnitude; the
// far cascade reaches coordinates near 1000 where float32 steps are coarse.
func TestLightViewRoundTrip(t *testing.T) {
	for si, s := range testSplits() {
		inv := s.LightView.Inv()
		for ci, c := range s.Corners {
			back := inv.Mul4x1(s.LightView.Mul4x1(c.Vec4(1))).Vec3()
			for axis := 0; axis < 3; axis++ {
				tol := 1e-4 * math32.Max(1, math32.Abs(c[axis]))
				if mgl32.Abs(back[axis]-c[axis]) > tol {
					t.Errorf("split %d corner %d axis %d: %g came back as %g",
						si, ci, axis, c[axis], back[axis])
				}
			}
		}
	}
}

// Nearer cascades cover less area, so their texels cover less world space.
// The ortho x scale element is 2/(right-left): bigger means tighter.
func TestNearCascadeIsTighter(t *testing.T) {
	splits := testSplits()
	first := splits[0].Ortho.At(0, 0)
	last := splits[2].Ortho.At(0, 0)
	if first <= last {
		t.Errorf("first cascade ortho scale %g should exceed last %g", first, last)
	}
}

func TestVerticalLightStaysFinite(t *testing.T) {
	for _, dir := range []mgl32.Vec3{
		{0, -1, 0},
		{0, 1, 0},
		{0, 0, 0}, // degenerate, falls back to straight down
	} {
		s := ComputeSplit(1, 100, testFovY, testAspect, mgl32.Ident4(), dir)
		for i := 0; i < 16; i++ {
			if math32.IsNaN(s.LightView[i]) || math32.IsInf(s.LightView[i], 0) {
				t.Fatalf("light dir %v: LightView[%d] is not finite", dir, i)
			}
			if math32.IsNaN(s.Ortho[i]) || math32.IsInf(s.Ortho[i], 0) {
				t.Fatalf("light dir %v: Ortho[%d] is not finite", dir, i)
			}
		}
	}
}

func TestSelectCascade(t *testing.T) {
	splits := testSplits()

	tests := []struct {
		depth float32
		want  int
	}{
		{10, 0},
		{49.9, 0},
		{50, 1}, // boundary belongs to the next cascade
		{100, 1},
		{500, 2},
		{999, 2},
		{1000, -1},
		{5000, -1},
	}
	for _, tt := range tests {
		if got := SelectCascade(splits, tt.depth); got != tt.want {
			t.Errorf("SelectCascade(%g) = %d, want %d", tt.depth, got, tt.want)
		}
	}
}

func TestFactor(t *testing.T) {
	tests := []struct {
		stored, fragment, bias float32
		want                   float32
	}{
		{0.5, 0.6, DefaultBias, 0}, // occluded
		{0.5, 0.5, DefaultBias, 1}, // equal depth is lit
		{0.7, 0.5, DefaultBias, 1}, // fragment nearer than occluder
		{0.5, 0.5005, 0.001, 1},    // bias absorbs small differences
	}
	for _, tt := range tests {
		if got := Factor(tt.stored, tt.fragment, tt.bias); got != tt.want {
			t.Errorf("Factor(%g, %g, %g) = %g, want %g", tt.stored, tt.fragment, tt.bias, got, tt.want)
		}
	}
}

// The splits must react to the camera: moving the view must move the fitted
// volumes.
func TestSplitsFollowCamera(t *testing.T) {
	cam := core.NewCamera()
	base := ComputeSplit(1, 100, testFovY, testAspect, cam.ViewMatrix(), testLight)

	cam.Position = mgl32.Vec3{500, 0, 0}
	moved := ComputeSplit(1, 100, testFovY, testAspect, cam.ViewMatrix(), testLight)

	if base.Centroid.ApproxEqualThreshold(moved.Centroid, 1) {
		t.Errorf("centroid did not follow the camera: %v vs %v", base.Centroid, moved.Centroid)
	}
}
