package lumen

import (
	"image"
	"image/color"
	"math"
)

// acesTonemap maps one linear HDR channel into [0,1] with the usual
// rational ACES approximation.
func acesTonemap(x float32) float32 {
	if x <= 0 {
		return 0
	}
	const a = 2.51
	const b = 0.03
	const c = 2.43
	const d = 0.59
	const e = 0.14

	y := float64(x)
	v := (y * (a*y + b)) / (y*(c*y+d) + e)
	return float32(math.Min(math.Max(v, 0), 1))
}

func linearToSRGB(c float32) uint8 {
	var s float64
	if c <= 0.0031308 {
		s = float64(c) * 12.92
	} else {
		s = 1.055*math.Pow(float64(c), 1/2.4) - 0.055
	}
	return uint8(math.Min(math.Max(s, 0), 1)*255 + 0.5)
}

// ToRGBA tonemaps a linear float RGBA buffer into a displayable image.
func ToRGBA(buf []float32, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: linearToSRGB(acesTonemap(buf[o+0])),
				G: linearToSRGB(acesTonemap(buf[o+1])),
				B: linearToSRGB(acesTonemap(buf[o+2])),
				A: 255,
			})
		}
	}
	return img
}

// RGBA returns the tonemapped accumulated image.
func (r *Renderer) RGBA() *image.RGBA {
	return ToRGBA(r.prev, r.width, r.height)
}
