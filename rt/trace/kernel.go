package trace

import (
	"runtime"
	"sync"
)

// TraceFrame renders one noisy sample image for the given frame number.
// The returned buffer is RGBA float32, width*height*4 long, alpha 1.
//
// Pixels are independent execution units: each owns its PRNG seeded from
// (pixelIndex, frame), shares only the read-only scene buffers, and rows
// are fanned out over a bounded worker pool. Results are therefore
// deterministic regardless of worker count or scheduling.
func (t *Tracer) TraceFrame(width, height int, frame uint32) []float32 {
	out := make([]float32, width*height*4)
	if width <= 0 || height <= 0 {
		return out
	}

	cf := newCameraFrame(t.Camera, width, height)
	spf := t.Config.SamplesPerFrame
	if spf < 1 {
		spf = 1
	}

	workers := t.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	rows := make(chan int, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for y := range rows {
				t.traceRow(cf, out, width, y, frame, spf)
			}
		}()
	}
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()

	return out
}

func (t *Tracer) traceRow(cf cameraFrame, out []float32, width, y int, frame uint32, spf int) {
	for x := 0; x < width; x++ {
		pixel := uint32(y*width + x)
		s := NewSampler(pixel, frame)

		var r, g, b float32
		for i := 0; i < spf; i++ {
			c := t.Li(cf.ray(x, y, s), s)
			r += c.X()
			g += c.Y()
			b += c.Z()
		}

		inv := 1 / float32(spf)
		o := int(pixel) * 4
		out[o+0] = r * inv
		out[o+1] = g * inv
		out[o+2] = b * inv
		out[o+3] = 1
	}
}
