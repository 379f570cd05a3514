package trace

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen/rt/bvh"
	"github.com/lumen3d/lumen/rt/core"
	"github.com/lumen3d/lumen/rt/env"
)

// SceneData is one atomic build of the buffers the integrator consumes:
// world-space triangles, the material table they index and the BVH over
// them. Structural scene changes replace all three together; the arrays
// are never mutated in place.
type SceneData struct {
	Triangles []core.Triangle
	Materials []core.Material
	Nodes     []bvh.Node
}

// BuildSceneData extracts world-space geometry from the graph and builds
// its BVH.
func BuildSceneData(scene *core.Scene) *SceneData {
	geom := scene.Extract()
	return &SceneData{
		Triangles: geom.Triangles,
		Materials: geom.Materials,
		Nodes:     bvh.Build(geom.Triangles),
	}
}

// Config carries the per-dispatch sampling parameters.
type Config struct {
	MaxBounces      int
	SamplesPerFrame int
	Workers         int // 0 = NumCPU
}

// Tracer runs the stochastic light transport for one scene build.
type Tracer struct {
	Data   *SceneData
	Env    *env.Map // nil = black environment
	Camera core.Camera
	Config Config

	intersector *Intersector
}

func NewTracer(data *SceneData, environment *env.Map, camera core.Camera, cfg Config) *Tracer {
	if cfg.SamplesPerFrame < 1 {
		cfg.SamplesPerFrame = 1
	}
	if cfg.MaxBounces < 0 {
		cfg.MaxBounces = 0
	}
	return &Tracer{
		Data:        data,
		Env:         environment,
		Camera:      camera,
		Config:      cfg,
		intersector: NewIntersector(data.Triangles, data.Nodes),
	}
}

func (t *Tracer) environment(dir mgl32.Vec3) mgl32.Vec3 {
	if t.Env == nil {
		return mgl32.Vec3{}
	}
	return t.Env.Eval(dir)
}

// Li estimates the radiance arriving along one camera ray. Each bounce
// either escapes to the environment, or picks up emission and continues
// with a direction blended between a cosine-weighted diffuse sample and
// the mirror reflection, weighted by metalness and roughness.
func (t *Tracer) Li(r Ray, s *Sampler) mgl32.Vec3 {
	radiance := mgl32.Vec3{}
	throughput := mgl32.Vec3{1, 1, 1}

	for bounce := 0; bounce <= t.Config.MaxBounces; bounce++ {
		hit, ok := t.intersector.Intersect(r)
		if !ok {
			e := t.environment(r.Dir)
			radiance = radiance.Add(mulVec(throughput, e))
			break
		}

		mat := &t.Data.Materials[hit.Material]

		// Shade on the side the ray arrived from.
		normal := hit.Normal
		if normal.Dot(r.Dir) > 0 {
			normal = normal.Mul(-1)
		}

		radiance = radiance.Add(mulVec(throughput, mat.Emission.Mul(mat.EmissionStrength)))

		specular := float32(0)
		if s.Float() <= mat.Metalness {
			specular = 1
		}

		diffuseDir := s.CosineHemisphere(normal)
		reflectDir := reflect(r.Dir, normal)
		w := specular * (1 - mat.Roughness)
		dir := diffuseDir.Mul(1 - w).Add(reflectDir.Mul(w))
		if l := dir.Len(); l > 1e-6 {
			dir = dir.Mul(1 / l)
		} else {
			dir = normal
		}

		tint := mat.BaseColor
		if specular > 0 {
			tint = mat.SpecularColor
		}
		throughput = mulVec(throughput, tint)

		r = Ray{
			Origin: hit.Point.Add(normal.Mul(1e-4)),
			Dir:    dir,
		}
	}

	return radiance
}

func reflect(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
