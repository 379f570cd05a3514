// Package env evaluates and importance-samples equirectangular
// environment maps. The map is preprocessed into a marginal CDF over
// rows and per-row conditional CDFs over columns, weighted by
// luminance * sin(theta) to undo the equirectangular area distortion
// near the poles.
package env

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
)

// MaxWidth bounds the working resolution of the CDF tables. Larger
// source images are downscaled before preprocessing.
const MaxWidth = 2048

type Map struct {
	Width     int
	Height    int
	Intensity float32
	Rotation  float32 // azimuthal offset, radians

	pix []float32 // RGB triples, linear

	marginal    []float32 // len Height: CDF over rows
	conditional []float32 // len Width*Height: per-row CDF over columns
	pdf         []float32 // len Width*Height: joint probability mass
}

// FromImage validates and preprocesses an equirectangular image.
// Images below 2x2 are structural configuration errors and rejected
// eagerly.
func FromImage(img image.Image, intensity, rotation float32) (*Map, error) {
	if img == nil {
		return nil, fmt.Errorf("env: nil environment image")
	}
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, fmt.Errorf("env: environment map %dx%d is too small, need at least 2x2", b.Dx(), b.Dy())
	}
	if intensity < 0 {
		return nil, fmt.Errorf("env: intensity must be >= 0, got %f", intensity)
	}

	if b.Dx() > MaxWidth {
		h := b.Dy() * MaxWidth / b.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, MaxWidth, h))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)
		img = scaled
		b = scaled.Bounds()
	}

	w, h := b.Dx(), b.Dy()
	m := &Map{
		Width:     w,
		Height:    h,
		Intensity: intensity,
		Rotation:  rotation,
		pix:       make([]float32, w*h*3),
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			m.pix[i+0] = srgbToLinear(float32(r) / 65535)
			m.pix[i+1] = srgbToLinear(float32(g) / 65535)
			m.pix[i+2] = srgbToLinear(float32(bl) / 65535)
		}
	}

	m.buildCDF()
	return m, nil
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow(float64(c+0.055)/1.055, 2.4))
}

func luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// buildCDF computes the row-weighted luminance, the marginal CDF over
// rows, the conditional CDF per row and the joint probability mass,
// all normalized to [0,1].
func (m *Map) buildCDF() {
	w, h := m.Width, m.Height
	m.marginal = make([]float32, h)
	m.conditional = make([]float32, w*h)
	m.pdf = make([]float32, w*h)

	weights := make([]float64, w*h)
	rowSums := make([]float64, h)
	total := 0.0

	for y := 0; y < h; y++ {
		// Row center in spherical coordinates; sin(theta) corrects the
		// equirectangular stretch at the poles.
		theta := math.Pi * (float64(y) + 0.5) / float64(h)
		sinTheta := math.Sin(theta)
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			lum := float64(luminance(m.pix[i], m.pix[i+1], m.pix[i+2]))
			wgt := lum * sinTheta
			weights[y*w+x] = wgt
			rowSums[y] += wgt
		}
		total += rowSums[y]
	}

	if total <= 0 {
		// Black map: fall back to uniform tables so sampling stays valid.
		for i := range weights {
			weights[i] = 1
		}
		for y := range rowSums {
			rowSums[y] = float64(w)
		}
		total = float64(w * h)
	}

	acc := 0.0
	for y := 0; y < h; y++ {
		acc += rowSums[y]
		m.marginal[y] = float32(acc / total)

		rowAcc := 0.0
		for x := 0; x < w; x++ {
			idx := y*w + x
			if rowSums[y] > 0 {
				rowAcc += weights[idx]
				m.conditional[idx] = float32(rowAcc / rowSums[y])
			} else {
				m.conditional[idx] = float32(x+1) / float32(w)
			}
			m.pdf[idx] = float32(weights[idx] / total)
		}
		// Guard against accumulated rounding: both CDFs end at exactly 1.
		m.conditional[y*w+w-1] = 1
	}
	m.marginal[h-1] = 1
}

// Eval returns the radiance for a world-space direction, applying the
// configured azimuth rotation and intensity.
func (m *Map) Eval(dir mgl32.Vec3) mgl32.Vec3 {
	d := dir
	if d.Len() == 0 {
		return mgl32.Vec3{}
	}
	d = d.Normalize()

	u := 0.5 + float32(math.Atan2(float64(d.X()), float64(-d.Z())))/(2*math.Pi)
	u += m.Rotation / (2 * math.Pi)
	u -= float32(math.Floor(float64(u)))
	v := float32(math.Acos(float64(mgl32.Clamp(d.Y(), -1, 1)))) / math.Pi

	x := int(u * float32(m.Width))
	y := int(v * float32(m.Height))
	if x >= m.Width {
		x = m.Width - 1
	}
	if y >= m.Height {
		y = m.Height - 1
	}

	i := (y*m.Width + x) * 3
	return mgl32.Vec3{m.pix[i], m.pix[i+1], m.pix[i+2]}.Mul(m.Intensity)
}

// Sample draws a direction from the luminance distribution using two
// independent uniforms: a binary search over the marginal row CDF, then
// one over that row's conditional CDF. Returns the direction and the
// solid-angle PDF.
func (m *Map) Sample(u1, u2 float32) (mgl32.Vec3, float32) {
	y := sort.Search(m.Height, func(i int) bool { return m.marginal[i] >= u1 })
	if y >= m.Height {
		y = m.Height - 1
	}

	row := m.conditional[y*m.Width : (y+1)*m.Width]
	x := sort.Search(m.Width, func(i int) bool { return row[i] >= u2 })
	if x >= m.Width {
		x = m.Width - 1
	}

	u := (float32(x) + 0.5) / float32(m.Width)
	v := (float32(y) + 0.5) / float32(m.Height)

	phi := (u-0.5)*2*math.Pi - m.Rotation
	theta := v * math.Pi
	sinTheta := float32(math.Sin(float64(theta)))
	dir := mgl32.Vec3{
		sinTheta * float32(math.Sin(float64(phi))),
		float32(math.Cos(float64(theta))),
		-sinTheta * float32(math.Cos(float64(phi))),
	}

	pdf := m.SolidAnglePDF(x, y)
	return dir, pdf
}

// SolidAnglePDF converts the joint probability mass at a texel into a
// density over the sphere.
func (m *Map) SolidAnglePDF(x, y int) float32 {
	theta := math.Pi * (float64(y) + 0.5) / float64(m.Height)
	sinTheta := float32(math.Sin(theta))
	if sinTheta <= 0 {
		return 0
	}
	texelSolidAngle := float32(2*math.Pi*math.Pi) * sinTheta / float32(m.Width*m.Height)
	if texelSolidAngle <= 0 {
		return 0
	}
	return m.pdf[y*m.Width+x] / texelSolidAngle
}

// CDFBytes packs the sampling tables as an RGBA32F texture: R holds the
// row's marginal CDF, G the conditional CDF, B the joint PDF, A unused.
func (m *Map) CDFBytes() []byte {
	out := make([]byte, m.Width*m.Height*16)
	o := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			idx := y*m.Width + x
			putFloat32(out[o:], m.marginal[y])
			putFloat32(out[o+4:], m.conditional[idx])
			putFloat32(out[o+8:], m.pdf[idx])
			putFloat32(out[o+12:], 0)
			o += 16
		}
	}
	return out
}

// PixelBytes packs the radiance texels as an RGBA32F texture.
func (m *Map) PixelBytes() []byte {
	out := make([]byte, m.Width*m.Height*16)
	o := 0
	for i := 0; i < m.Width*m.Height; i++ {
		putFloat32(out[o:], m.pix[i*3])
		putFloat32(out[o+4:], m.pix[i*3+1])
		putFloat32(out[o+8:], m.pix[i*3+2])
		putFloat32(out[o+12:], 1)
		o += 16
	}
	return out
}

func putFloat32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
