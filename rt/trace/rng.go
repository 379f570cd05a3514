package trace

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Per-frame stride and global seed for the per-pixel RNG state.
	// Every pixel/frame pair gets a distinct, reproducible stream.
	frameStride = 719393
	globalSeed  = 0x9E3779B9
)

// Sampler is a per-pixel PRNG. State advances through an integer
// multiply-xorshift-multiply-xorshift permutation, so identical seeds
// replay identical sample sequences.
type Sampler struct {
	state uint32
}

func NewSampler(pixelIndex, frame uint32) *Sampler {
	s := &Sampler{state: pixelIndex + frame*frameStride + globalSeed}
	s.next() // decorrelate adjacent seeds before the first draw
	return s
}

func scramble(x uint32) uint32 {
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

func (s *Sampler) next() uint32 {
	s.state = scramble(s.state)
	return s.state
}

// Float returns a uniform draw in [0, 1).
func (s *Sampler) Float() float32 {
	return float32(s.next()>>8) * (1.0 / (1 << 24))
}

// Gaussian returns two independent standard normal draws via Box-Muller.
func (s *Sampler) Gaussian() (float32, float32) {
	u1 := s.Float()
	u2 := s.Float()
	if u1 < 1e-10 {
		u1 = 1e-10
	}
	r := float32(math.Sqrt(-2 * math.Log(float64(u1))))
	a := 2 * math.Pi * float64(u2)
	return r * float32(math.Cos(a)), r * float32(math.Sin(a))
}

// UnitVector returns a uniformly distributed direction on the sphere,
// built from gaussian draws.
func (s *Sampler) UnitVector() mgl32.Vec3 {
	for {
		x, y := s.Gaussian()
		z, _ := s.Gaussian()
		v := mgl32.Vec3{x, y, z}
		if l := v.Len(); l > 1e-6 {
			return v.Mul(1 / l)
		}
	}
}

// CosineHemisphere returns a cosine-weighted direction around the
// normal: a uniform sphere sample added to the normal and renormalized.
func (s *Sampler) CosineHemisphere(normal mgl32.Vec3) mgl32.Vec3 {
	d := normal.Add(s.UnitVector())
	if l := d.Len(); l > 1e-6 {
		return d.Mul(1 / l)
	}
	return normal
}

// UnitDisk returns a uniform point in the unit disk, used for aperture
// sampling.
func (s *Sampler) UnitDisk() (float32, float32) {
	r := float32(math.Sqrt(float64(s.Float())))
	a := 2 * math.Pi * float64(s.Float())
	return r * float32(math.Cos(a)), r * float32(math.Sin(a))
}
