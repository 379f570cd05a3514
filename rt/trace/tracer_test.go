package trace

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/rt/core"
	"github.com/lumen3d/lumen/rt/env"
)

func TestSamplerDeterminism(t *testing.T) {
	a := NewSampler(42, 7)
	b := NewSampler(42, 7)
	for i := 0; i < 100; i++ {
		if a.Float() != b.Float() {
			t.Fatal("identical seeds must replay identical sequences")
		}
	}

	c := NewSampler(42, 8)
	same := true
	for i := 0; i < 16; i++ {
		if NewSampler(42, 7).Float() != c.Float() {
			same = false
			break
		}
	}
	if same {
		t.Error("different frames should decorrelate the stream")
	}
}

func TestSamplerUniformMean(t *testing.T) {
	s := NewSampler(1, 1)
	sum := 0.0
	const n = 20000
	for i := 0; i < n; i++ {
		v := s.Float()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %f outside [0,1)", v)
		}
		sum += float64(v)
	}
	mean := sum / n
	if math.Abs(mean-0.5) > 0.01 {
		t.Errorf("uniform mean drifted to %f", mean)
	}
}

func TestCosineHemisphereStaysAboveSurface(t *testing.T) {
	s := NewSampler(3, 3)
	normal := mgl32.Vec3{0, 1, 0}
	for i := 0; i < 1000; i++ {
		d := s.CosineHemisphere(normal)
		if math.Abs(float64(d.Len()-1)) > 1e-4 {
			t.Fatalf("direction not unit: %v", d)
		}
		if d.Dot(normal) < -1e-6 {
			t.Fatalf("direction below the surface: %v", d)
		}
	}
}

func singleTriangleScene(mat core.Material) *SceneData {
	scene := core.NewScene()
	mesh := core.NewQuadMesh()
	scene.Add(core.NewMeshNode(mesh, mat))
	return BuildSceneData(scene)
}

func TestLiEmission(t *testing.T) {
	mat := core.NewEmissiveMaterial(mgl32.Vec3{1, 0.5, 0.25}, 3)
	data := singleTriangleScene(mat)

	cam := core.NewCamera()
	tr := NewTracer(data, nil, cam, Config{MaxBounces: 0, SamplesPerFrame: 1})

	// Straight down onto the quad.
	r := Ray{Origin: mgl32.Vec3{0, 5, 0}, Dir: mgl32.Vec3{0, -1, 0}}
	c := tr.Li(r, NewSampler(0, 1))

	want := mgl32.Vec3{3, 1.5, 0.75}
	if c.Sub(want).Len() > 1e-4 {
		t.Errorf("emission: got %v, want %v", c, want)
	}
}

func TestLiMissFallsThroughToEnvironment(t *testing.T) {
	data := &SceneData{} // empty scene
	white := env.NewGradient(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, 2)

	tr := NewTracer(data, white, core.NewCamera(), Config{MaxBounces: 4, SamplesPerFrame: 1})
	c := tr.Li(Ray{Origin: mgl32.Vec3{}, Dir: mgl32.Vec3{0, 1, 0}}, NewSampler(0, 1))
	if c.Len() == 0 {
		t.Error("miss should evaluate the environment")
	}

	dark := NewTracer(data, nil, core.NewCamera(), Config{MaxBounces: 4, SamplesPerFrame: 1})
	if c := dark.Li(Ray{Origin: mgl32.Vec3{}, Dir: mgl32.Vec3{0, 1, 0}}, NewSampler(0, 1)); c.Len() != 0 {
		t.Errorf("no environment should mean black misses, got %v", c)
	}
}

func TestTraceFrameDeterministicAcrossWorkerCounts(t *testing.T) {
	data := singleTriangleScene(core.NewDiffuseMaterial(mgl32.Vec3{0.8, 0.8, 0.8}))
	sky := env.NewGradient(mgl32.Vec3{0.3, 0.5, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.2, 0.2, 0.2}, 1)

	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 2, 4}
	cam.LookAt(mgl32.Vec3{0, 0, 0})

	one := NewTracer(data, sky, cam, Config{MaxBounces: 3, SamplesPerFrame: 2, Workers: 1})
	many := NewTracer(data, sky, cam, Config{MaxBounces: 3, SamplesPerFrame: 2, Workers: 8})

	imgA := one.TraceFrame(32, 24, 5)
	imgB := many.TraceFrame(32, 24, 5)

	if len(imgA) != 32*24*4 || len(imgB) != 32*24*4 {
		t.Fatalf("unexpected buffer sizes %d, %d", len(imgA), len(imgB))
	}
	for i := range imgA {
		if imgA[i] != imgB[i] {
			t.Fatalf("pixel component %d differs across worker counts: %f vs %f", i, imgA[i], imgB[i])
		}
	}
}

func TestCameraDepthOfField(t *testing.T) {
	cam := core.NewCamera()
	cam.Aperture = 0.5
	cam.FocalDistance = 10

	cf := newCameraFrame(cam, 64, 64)
	s := NewSampler(0, 1)

	// With an open aperture, origins scatter within the lens disk but
	// rays still converge near the focal plane.
	r1 := cf.ray(32, 32, s)
	r2 := cf.ray(32, 32, s)
	if r1.Origin.Sub(r2.Origin).Len() == 0 {
		t.Error("aperture sampling should jitter the ray origin")
	}

	p1 := r1.Origin.Add(r1.Dir.Mul(10))
	p2 := r2.Origin.Add(r2.Dir.Mul(10))
	if p1.Sub(p2).Len() > 0.2 {
		t.Errorf("rays should converge near the focal plane: %v vs %v", p1, p2)
	}

	cam.Aperture = 0
	pinhole := newCameraFrame(cam, 64, 64)
	r3 := pinhole.ray(32, 32, s)
	if r3.Origin.Sub(cam.Position).Len() != 0 {
		t.Error("pinhole rays must start at the camera position")
	}
}
