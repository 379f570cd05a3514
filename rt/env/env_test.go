package env

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFromImageRejectsInvalid(t *testing.T) {
	if _, err := FromImage(nil, 1, 0); err == nil {
		t.Error("nil image should be rejected")
	}
	if _, err := FromImage(solidImage(1, 1, color.RGBA{255, 255, 255, 255}), 1, 0); err == nil {
		t.Error("1x1 image should be rejected")
	}
	if _, err := FromImage(solidImage(8, 4, color.RGBA{255, 255, 255, 255}), -1, 0); err == nil {
		t.Error("negative intensity should be rejected")
	}
}

func TestCDFNormalized(t *testing.T) {
	m, err := FromImage(solidImage(16, 8, color.RGBA{200, 180, 90, 255}), 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	if m.marginal[m.Height-1] != 1 {
		t.Errorf("marginal CDF should end at 1, got %f", m.marginal[m.Height-1])
	}
	prev := float32(0)
	for y, v := range m.marginal {
		if v < prev {
			t.Fatalf("marginal CDF decreases at row %d: %f < %f", y, v, prev)
		}
		prev = v
	}

	for y := 0; y < m.Height; y++ {
		row := m.conditional[y*m.Width : (y+1)*m.Width]
		if row[m.Width-1] != 1 {
			t.Errorf("row %d conditional CDF should end at 1, got %f", y, row[m.Width-1])
		}
		prev := float32(0)
		for x, v := range row {
			if v < prev {
				t.Fatalf("conditional CDF decreases at (%d,%d)", x, y)
			}
			prev = v
		}
	}
}

func TestSampleFindsBrightTexel(t *testing.T) {
	// One bright texel in an otherwise black map: nearly all samples
	// must land on it.
	img := solidImage(16, 8, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(12, 3, color.RGBA{255, 255, 255, 255})

	m, err := FromImage(img, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	dir, pdf := m.Sample(0.5, 0.5)
	if pdf <= 0 {
		t.Fatalf("expected positive pdf, got %f", pdf)
	}

	// The sampled direction must evaluate to the bright texel.
	c := m.Eval(dir)
	if c.Len() == 0 {
		t.Errorf("sampled direction %v evaluates to black", dir)
	}
}

func TestEvalIntensityAndRotation(t *testing.T) {
	base, err := FromImage(solidImage(8, 4, color.RGBA{255, 255, 255, 255}), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	double, err := FromImage(solidImage(8, 4, color.RGBA{255, 255, 255, 255}), 2, 0)
	if err != nil {
		t.Fatal(err)
	}

	dir := mgl32.Vec3{0, 0, -1}
	a := base.Eval(dir)
	b := double.Eval(dir)
	if math.Abs(float64(b.X()-2*a.X())) > 1e-5 {
		t.Errorf("intensity 2 should double radiance: %v vs %v", a, b)
	}

	// Rotation on a half-bright/half-dark map shifts the lookup.
	img := solidImage(8, 4, color.RGBA{0, 0, 0, 255})
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	rotated, err := FromImage(img, 1, math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := FromImage(img, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Eval(dir).Len() == rotated.Eval(dir).Len() {
		t.Error("pi rotation should change the lookup on an asymmetric map")
	}
}

func TestGradientUpperHemisphere(t *testing.T) {
	m := NewGradient(mgl32.Vec3{0.2, 0.4, 1}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.1, 0.1, 0.1}, 1)

	up := m.Eval(mgl32.Vec3{0, 1, 0})
	down := m.Eval(mgl32.Vec3{0, -1, 0})
	if up.Z() <= down.Z() {
		t.Errorf("zenith should be bluer than ground: up=%v down=%v", up, down)
	}
}

func TestCDFBytesLayout(t *testing.T) {
	m, err := FromImage(solidImage(4, 2, color.RGBA{255, 255, 255, 255}), 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	data := m.CDFBytes()
	if len(data) != 4*2*16 {
		t.Fatalf("expected %d bytes, got %d", 4*2*16, len(data))
	}
	pix := m.PixelBytes()
	if len(pix) != 4*2*16 {
		t.Fatalf("expected %d pixel bytes, got %d", 4*2*16, len(pix))
	}
}
