package core

import (
	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl32"
)

// Rig drives a Camera toward a target pose with damped springs, one per
// position axis plus yaw and pitch. Input code writes targets, the frame
// loop calls Update once per fixed step; the raw Camera stays usable
// without a rig.
type Rig struct {
	Camera *Camera

	TargetPosition mgl32.Vec3
	TargetYaw      float32
	TargetPitch    float32

	// PitchLimit clamps the smoothed pitch in degrees. Zero disables
	// clamping, preserving the unclamped baseline behavior.
	PitchLimit float32

	spring harmonica.Spring
	vel    [5]float64 // x, y, z, yaw, pitch
}

// NewRig wires a rig to cam, seeded with the camera's current pose so the
// first Update is a no-op. fps is the fixed step rate the caller commits to.
func NewRig(cam *Camera, fps int) *Rig {
	return &Rig{
		Camera:         cam,
		TargetPosition: cam.Position,
		TargetYaw:      cam.Rotation.Y(),
		TargetPitch:    cam.Rotation.X(),
		PitchLimit:     89,
		spring:         harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Update advances the springs one step and writes the smoothed pose back to
// the camera.
func (r *Rig) Update() {
	for i := 0; i < 3; i++ {
		p, v := r.spring.Update(float64(r.Camera.Position[i]), r.vel[i], float64(r.TargetPosition[i]))
		r.Camera.Position[i] = float32(p)
		r.vel[i] = v
	}

	yaw, vy := r.spring.Update(float64(r.Camera.Rotation[1]), r.vel[3], float64(r.TargetYaw))
	r.Camera.Rotation[1] = float32(yaw)
	r.vel[3] = vy

	pitch, vp := r.spring.Update(float64(r.Camera.Rotation[0]), r.vel[4], float64(r.TargetPitch))
	if r.PitchLimit > 0 {
		limit := float64(r.PitchLimit)
		if pitch > limit {
			pitch = limit
		}
		if pitch < -limit {
			pitch = -limit
		}
	}
	r.Camera.Rotation[0] = float32(pitch)
	r.vel[4] = vp
}
