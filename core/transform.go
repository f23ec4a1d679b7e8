package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// WorldMatrix composes translation, rotation about X then Y then Z (in
// degrees), then uniform scale. The rotation order is fixed; changing it
// changes the result. Every call builds a fresh value from its inputs,
// nothing accumulates between calls.
func WorldMatrix(position mgl32.Vec3, rotationDeg mgl32.Vec3, scale float32) mgl32.Mat4 {
	t := mgl32.Translate3D(position.X(), position.Y(), position.Z())
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(rotationDeg.X()))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(rotationDeg.Y()))
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(rotationDeg.Z()))
	s := mgl32.Scale3D(scale, scale, scale)

	return t.Mul4(rx).Mul4(ry).Mul4(rz).Mul4(s)
}

// ProjectionMatrix builds a perspective projection. fovY is in radians.
// zNear must be > 0 and zFar > zNear; Config.Validate enforces this once at
// setup, the builder does not re-check per frame.
func ProjectionMatrix(fovY, aspect, zNear, zFar float32) mgl32.Mat4 {
	return mgl32.Perspective(fovY, aspect, zNear, zFar)
}
