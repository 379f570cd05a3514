package trace

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/rt/core"
)

// cameraFrame caches the per-frame quantities of ray generation so the
// basis and FOV trigonometry are computed once per dispatch, not per
// pixel.
type cameraFrame struct {
	origin        mgl32.Vec3
	right, up     mgl32.Vec3
	forward       mgl32.Vec3
	tanHalfFov    float32
	aspect        float32
	focalDistance float32
	aperture      float32
	width, height float32
}

func newCameraFrame(cam core.Camera, width, height int) cameraFrame {
	right, up, forward := cam.Basis()

	fov := cam.FovY
	if fov <= 0 || fov >= 180 {
		fov = 45
	}
	focal := cam.FocalDistance
	if focal <= 0 {
		focal = 1
	}

	return cameraFrame{
		origin:        cam.Position,
		right:         right,
		up:            up,
		forward:       forward,
		tanHalfFov:    float32(math.Tan(float64(mgl32.DegToRad(fov)) / 2)),
		aspect:        float32(width) / float32(height),
		focalDistance: focal,
		aperture:      max(cam.Aperture, 0),
		width:         float32(width),
		height:        float32(height),
	}
}

// ray generates one primary ray for pixel (x, y): sub-pixel jitter for
// anti-aliasing, un-projection through the pinhole model, then a thin
// lens perturbation when the aperture is open.
func (cf *cameraFrame) ray(x, y int, s *Sampler) Ray {
	px := (2*(float32(x)+s.Float())/cf.width - 1) * cf.tanHalfFov * cf.aspect
	py := (1 - 2*(float32(y)+s.Float())/cf.height) * cf.tanHalfFov

	dir := cf.forward.Add(cf.right.Mul(px)).Add(cf.up.Mul(py)).Normalize()
	origin := cf.origin

	if cf.aperture > 0 {
		focalPoint := origin.Add(dir.Mul(cf.focalDistance))
		dx, dy := s.UnitDisk()
		origin = origin.
			Add(cf.right.Mul(dx * cf.aperture)).
			Add(cf.up.Mul(dy * cf.aperture))
		dir = focalPoint.Sub(origin).Normalize()
	}

	return Ray{Origin: origin, Dir: dir}
}
