// Package gpu owns the WebGPU side of the engine: versioned binary
// layouts for scene data, buffer lifetime management and bind group
// wiring for the compute passes.
package gpu

import (
	"encoding/binary"
	"math"

	"github.com/lumen3d/lumen/rt/core"
)

const (
	// TriangleByteSize is six vec4 slots per triangle. The material
	// index rides in p0.w as a bitcast i32.
	TriangleByteSize = 96

	// MaterialByteSize is three vec4 slots:
	// base.rgb + roughness, specular.rgb + metalness, emission.rgb + strength.
	MaterialByteSize = 48

	// ParamsByteSize is the render params uniform, six vec4 slots.
	ParamsByteSize = 96
)

func putF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

func putU32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// SerializeTriangles packs world-space triangles for the raytrace
// kernel's storage buffer.
func SerializeTriangles(tris []core.Triangle) []byte {
	out := make([]byte, len(tris)*TriangleByteSize)
	for i, t := range tris {
		b := out[i*TriangleByteSize:]

		putF32(b[0:], t.P0.X())
		putF32(b[4:], t.P0.Y())
		putF32(b[8:], t.P0.Z())
		putU32(b[12:], uint32(t.Material))

		putF32(b[16:], t.P1.X())
		putF32(b[20:], t.P1.Y())
		putF32(b[24:], t.P1.Z())

		putF32(b[32:], t.P2.X())
		putF32(b[36:], t.P2.Y())
		putF32(b[40:], t.P2.Z())

		putF32(b[48:], t.N0.X())
		putF32(b[52:], t.N0.Y())
		putF32(b[56:], t.N0.Z())

		putF32(b[64:], t.N1.X())
		putF32(b[68:], t.N1.Y())
		putF32(b[72:], t.N1.Z())

		putF32(b[80:], t.N2.X())
		putF32(b[84:], t.N2.Y())
		putF32(b[88:], t.N2.Z())
	}
	return out
}

// SerializeMaterials packs the deduplicated material table.
func SerializeMaterials(mats []core.Material) []byte {
	out := make([]byte, len(mats)*MaterialByteSize)
	for i, m := range mats {
		b := out[i*MaterialByteSize:]

		putF32(b[0:], m.BaseColor.X())
		putF32(b[4:], m.BaseColor.Y())
		putF32(b[8:], m.BaseColor.Z())
		putF32(b[12:], m.Roughness)

		putF32(b[16:], m.SpecularColor.X())
		putF32(b[20:], m.SpecularColor.Y())
		putF32(b[24:], m.SpecularColor.Z())
		putF32(b[28:], m.Metalness)

		putF32(b[32:], m.Emission.X())
		putF32(b[36:], m.Emission.Y())
		putF32(b[40:], m.Emission.Z())
		putF32(b[44:], m.EmissionStrength)
	}
	return out
}

// Params mirrors the Params uniform struct in raytrace.wgsl. The camera
// basis is pre-computed on the host so the shader never rebuilds it.
type Params struct {
	Origin  [3]float32
	Right   [3]float32
	Up      [3]float32
	Forward [3]float32

	TanHalfFov    float32
	Aspect        float32
	FocalDistance float32
	Aperture      float32

	Width           uint32
	Height          uint32
	Frame           uint32
	SamplesPerFrame uint32

	MaxBounces   uint32
	HasEnv       bool
	EnvIntensity float32
	EnvRotation  float32
}

// NewParams derives the uniform contents from a camera and the current
// frame state.
func NewParams(cam core.Camera, width, height, frame uint32) Params {
	right, up, forward := cam.Basis()
	fov := float64(cam.FovY)
	if fov <= 0 || fov >= 180 {
		fov = 45
	}

	return Params{
		Origin:        [3]float32{cam.Position.X(), cam.Position.Y(), cam.Position.Z()},
		Right:         [3]float32{right.X(), right.Y(), right.Z()},
		Up:            [3]float32{up.X(), up.Y(), up.Z()},
		Forward:       [3]float32{forward.X(), forward.Y(), forward.Z()},
		TanHalfFov:    float32(math.Tan(fov * math.Pi / 360)),
		Aspect:        float32(width) / float32(height),
		FocalDistance: cam.FocalDistance,
		Aperture:      cam.Aperture,
		Width:         width,
		Height:        height,
		Frame:         frame,
	}
}

// ToBytes lays the struct out as six vec4 slots.
//
//	origin.xyz  tanHalfFov   -- 16
//	right.xyz   aspect       -- 32
//	up.xyz      focalDist    -- 48
//	forward.xyz aperture     -- 64
//	width height frame spf   -- 80
//	bounces hasEnv envI envR -- 96
func (p Params) ToBytes() []byte {
	buf := make([]byte, ParamsByteSize)

	putF32(buf[0:], p.Origin[0])
	putF32(buf[4:], p.Origin[1])
	putF32(buf[8:], p.Origin[2])
	putF32(buf[12:], p.TanHalfFov)

	putF32(buf[16:], p.Right[0])
	putF32(buf[20:], p.Right[1])
	putF32(buf[24:], p.Right[2])
	putF32(buf[28:], p.Aspect)

	putF32(buf[32:], p.Up[0])
	putF32(buf[36:], p.Up[1])
	putF32(buf[40:], p.Up[2])
	putF32(buf[44:], p.FocalDistance)

	putF32(buf[48:], p.Forward[0])
	putF32(buf[52:], p.Forward[1])
	putF32(buf[56:], p.Forward[2])
	putF32(buf[60:], p.Aperture)

	putU32(buf[64:], p.Width)
	putU32(buf[68:], p.Height)
	putU32(buf[72:], p.Frame)
	putU32(buf[76:], p.SamplesPerFrame)

	putU32(buf[80:], p.MaxBounces)
	hasEnv := uint32(0)
	if p.HasEnv {
		hasEnv = 1
	}
	putU32(buf[84:], hasEnv)
	putF32(buf[88:], p.EnvIntensity)
	putF32(buf[92:], p.EnvRotation)

	return buf
}
