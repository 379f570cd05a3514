package core

import "github.com/go-gl/mathgl/mgl32"

// Material is the shading description shared by triangles. Indexed by the
// integer stored on each extracted triangle.
type Material struct {
	BaseColor        mgl32.Vec3
	SpecularColor    mgl32.Vec3
	Emission         mgl32.Vec3
	EmissionStrength float32
	Roughness        float32 // 0 = mirror, 1 = fully diffuse
	Metalness        float32 // probability of a specular bounce
}

func DefaultMaterial() Material {
	return Material{
		BaseColor:     mgl32.Vec3{1, 1, 1},
		SpecularColor: mgl32.Vec3{1, 1, 1},
		Roughness:     1.0,
		Metalness:     0.0,
	}
}

func NewDiffuseMaterial(color mgl32.Vec3) Material {
	m := DefaultMaterial()
	m.BaseColor = color
	return m
}

func NewMetalMaterial(color mgl32.Vec3, roughness float32) Material {
	m := DefaultMaterial()
	m.BaseColor = color
	m.SpecularColor = color
	m.Roughness = roughness
	m.Metalness = 1.0
	return m
}

func NewEmissiveMaterial(color mgl32.Vec3, strength float32) Material {
	m := DefaultMaterial()
	m.BaseColor = color
	m.Emission = color
	m.EmissionStrength = strength
	return m
}
