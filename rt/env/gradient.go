package env

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NewGradient builds a procedural sky: zenith blending to horizon on the
// upper hemisphere, a flat ground color below. Useful as a default when
// no environment image is configured.
func NewGradient(zenith, horizon, ground mgl32.Vec3, intensity float32) *Map {
	const w, h = 64, 32
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		// cos(theta) at the row center: +1 at the top row, -1 at the bottom.
		cosTheta := math.Cos(math.Pi * (float64(y) + 0.5) / float64(h))
		var c mgl32.Vec3
		if cosTheta >= 0 {
			t := float32(cosTheta)
			c = horizon.Mul(1 - t).Add(zenith.Mul(t))
		} else {
			c = ground
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: encodeSRGB(c.X()),
				G: encodeSRGB(c.Y()),
				B: encodeSRGB(c.Z()),
				A: 255,
			})
		}
	}

	m, err := FromImage(img, intensity, 0)
	if err != nil {
		// The synthesized image always satisfies the preconditions.
		panic(err)
	}
	return m
}

func encodeSRGB(c float32) uint8 {
	c = mgl32.Clamp(c, 0, 1)
	var s float64
	if c <= 0.0031308 {
		s = float64(c) * 12.92
	} else {
		s = 1.055*math.Pow(float64(c), 1/2.4) - 0.055
	}
	return uint8(s*255 + 0.5)
}
