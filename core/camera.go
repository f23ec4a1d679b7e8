package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera holds the view position and orientation as Euler angles in
// degrees: pitch about X, yaw about Y, roll about Z.
type Camera struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
}

func NewCamera() *Camera {
	return &Camera{}
}

// MovePosition translates the camera along its own rotated axes: dz moves
// toward where the camera faces, dx strafes, dy is world-vertical. The
// offsets are rotated by the current yaw before being applied, so "forward"
// tracks the facing direction.
func (c *Camera) MovePosition(dx, dy, dz float32) {
	yaw := mgl32.DegToRad(c.Rotation.Y())
	if dz != 0 {
		c.Position[0] += math32.Sin(yaw) * -dz
		c.Position[2] += math32.Cos(yaw) * dz
	}
	if dx != 0 {
		c.Position[0] += math32.Sin(yaw-math32.Pi/2) * -dx
		c.Position[2] += math32.Cos(yaw-math32.Pi/2) * dx
	}
	c.Position[1] += dy
}

// MoveRotation adds to the Euler angles, in degrees. Pitch is deliberately
// not clamped here: unclamped rotation is the documented baseline, callers
// that need a limit apply it themselves (Rig does).
func (c *Camera) MoveRotation(dPitch, dYaw, dRoll float32) {
	c.Rotation[0] += dPitch
	c.Rotation[1] += dYaw
	c.Rotation[2] += dRoll
}

// ViewMatrix builds the world-to-view matrix. Translation is applied first,
// then rotation, because the camera's effect on the world is the inverse of
// the camera's own placement.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(c.Rotation.X()))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(c.Rotation.Y()))
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(c.Rotation.Z()))
	t := mgl32.Translate3D(-c.Position.X(), -c.Position.Y(), -c.Position.Z())

	return rx.Mul4(ry).Mul4(rz).Mul4(t)
}

// Forward returns the camera's facing direction derived from yaw and pitch;
// roll is ignored. With zero roll it agrees with ViewMatrix: the returned
// vector maps to (0, 0, -1) in view space.
func (c *Camera) Forward() mgl32.Vec3 {
	pitch := mgl32.DegToRad(c.Rotation.X())
	yaw := mgl32.DegToRad(c.Rotation.Y())
	return mgl32.Vec3{
		math32.Sin(yaw) * math32.Cos(pitch),
		-math32.Sin(pitch),
		-math32.Cos(yaw) * math32.Cos(pitch),
	}
}
