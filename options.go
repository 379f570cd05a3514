package lumen

import "fmt"

// Options is the recognized configuration surface. Applying new options
// to a running renderer always resets accumulation: the running average
// is only valid for samples drawn under one fixed configuration.
type Options struct {
	Width  int
	Height int

	MaxBounces      int     // >= 0
	SamplesPerFrame int     // >= 1
	SampleBudget    int     // >= 2, total frames to accumulate
	ResolutionScale float32 // 0 < scale <= 1, applied to Width/Height

	EnvIntensity float32
	EnvRotation  float32 // radians

	Workers int // CPU tracing goroutines, 0 = NumCPU
}

func DefaultOptions() Options {
	return Options{
		Width:           800,
		Height:          600,
		MaxBounces:      4,
		SamplesPerFrame: 1,
		SampleBudget:    64,
		ResolutionScale: 1,
		EnvIntensity:    1,
	}
}

func (o Options) Validate() error {
	if o.Width < 1 || o.Height < 1 {
		return fmt.Errorf("lumen: resolution %dx%d is invalid", o.Width, o.Height)
	}
	if o.MaxBounces < 0 {
		return fmt.Errorf("lumen: maxBounces must be >= 0, got %d", o.MaxBounces)
	}
	if o.SamplesPerFrame < 1 {
		return fmt.Errorf("lumen: samplesPerFrame must be >= 1, got %d", o.SamplesPerFrame)
	}
	if o.SampleBudget < 2 {
		return fmt.Errorf("lumen: sampleBudget must be >= 2, got %d", o.SampleBudget)
	}
	if o.ResolutionScale <= 0 || o.ResolutionScale > 1 {
		return fmt.Errorf("lumen: resolutionScale must be in (0, 1], got %f", o.ResolutionScale)
	}
	if o.EnvIntensity < 0 {
		return fmt.Errorf("lumen: envIntensity must be >= 0, got %f", o.EnvIntensity)
	}
	return nil
}

// renderSize is the effective pixel resolution after scaling.
func (o Options) renderSize() (int, int) {
	w := int(float32(o.Width) * o.ResolutionScale)
	h := int(float32(o.Height) * o.ResolutionScale)
	return max(w, 1), max(h, 1)
}
