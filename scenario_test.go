package lumen

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/lumen3d/lumen/rt/core"
)

// TestDiffuseSphereUnderAreaLight renders a white diffuse sphere lit
// only by an emissive sphere and checks the converged luminance of the
// directly lit region against the rendering-equation estimate
// L = Le * Omega * cos(theta) / pi for a unit-albedo Lambertian surface
// under a spherical light of solid angle Omega.
func TestDiffuseSphereUnderAreaLight(t *testing.T) {
	if testing.Short() {
		t.Skip("long convergence test")
	}

	const (
		lightY      = 5.0
		lightRadius = 1.0
		emission    = 1.0
	)

	scene := core.NewScene()

	white := core.NewDiffuseMaterial(mgl32.Vec3{1, 1, 1}) // roughness 1, metalness 0
	sphere := core.NewMeshNode(core.NewIcosphereMesh(2), white)
	scene.Add(sphere)

	lightMat := core.NewEmissiveMaterial(mgl32.Vec3{1, 1, 1}, emission)
	light := core.NewMeshNode(core.NewIcosphereMesh(2), lightMat)
	light.Transform.Position = mgl32.Vec3{0, lightY, 0}
	light.Transform.Scale = mgl32.Vec3{lightRadius, lightRadius, lightRadius}
	scene.Add(light)

	opts := DefaultOptions()
	opts.Width = 16
	opts.Height = 12
	opts.SampleBudget = 256
	opts.SamplesPerFrame = 4
	opts.MaxBounces = 3

	r, err := NewRenderer(opts)
	require.NoError(t, err)
	r.SetScene(scene)

	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 3.5, 0}
	cam.Forward = mgl32.Vec3{0, -1, 0} // straight down onto the lit pole
	r.SetCamera(cam)

	for r.Tick() {
	}
	require.Equal(t, StateIdle, r.State())

	img := r.Image()
	w, h := r.Size()

	// Average the central crop: those pixels land near the sphere's top,
	// where the light is directly overhead (cos(theta) ~ 1).
	var sum float64
	var count int
	for y := h / 3; y < 2*h/3; y++ {
		for x := w / 3; x < 2*w/3; x++ {
			o := (y*w + x) * 4
			lum := 0.2126*float64(img[o]) + 0.7152*float64(img[o+1]) + 0.0722*float64(img[o+2])
			sum += lum
			count++
		}
	}
	mean := sum / float64(count)

	// Solid angle of the light from the sphere's top point.
	d := lightY - 1.0
	sinA := lightRadius / d
	omega := 2 * math.Pi * (1 - math.Sqrt(1-sinA*sinA))
	analytic := emission * omega / math.Pi

	// Single-scatter estimate; extra bounces only add energy, variance
	// is well below the band at 256x4 samples.
	require.Greater(t, mean, 0.5*analytic,
		"lit region too dark: mean %f, analytic %f", mean, analytic)
	require.Less(t, mean, 5*analytic,
		"lit region too bright: mean %f, analytic %f", mean, analytic)
}
