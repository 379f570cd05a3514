package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera describes the view for one render. Aperture 0 means pinhole.
type Camera struct {
	Position      mgl32.Vec3
	Forward       mgl32.Vec3 // unit vector
	FovY          float32    // vertical field of view, degrees
	FocalDistance float32
	Aperture      float32
}

func NewCamera() Camera {
	return Camera{
		Position:      mgl32.Vec3{0, 0, 5},
		Forward:       mgl32.Vec3{0, 0, -1},
		FovY:          45,
		FocalDistance: 5,
		Aperture:      0,
	}
}

// LookAt aims the camera at target and sets the focal plane there.
func (c *Camera) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	c.Forward = d.Normalize()
	c.FocalDistance = d.Len()
}

// Basis returns the right-handed (right, up, forward) frame used for ray
// generation. When forward is nearly parallel to world up, a fallback up
// axis keeps the cross products well conditioned.
func (c *Camera) Basis() (right, up, forward mgl32.Vec3) {
	forward = c.Forward
	if forward.Len() == 0 {
		forward = mgl32.Vec3{0, 0, -1}
	} else {
		forward = forward.Normalize()
	}

	worldUp := mgl32.Vec3{0, 1, 0}
	if float32(math.Abs(float64(forward.Dot(worldUp)))) > 0.999 {
		worldUp = mgl32.Vec3{1, 0, 0}
	}
	right = forward.Cross(worldUp).Normalize()
	up = right.Cross(forward)
	return right, up, forward
}
