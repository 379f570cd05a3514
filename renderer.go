// Package lumen is a progressive Monte-Carlo path tracing engine. A
// Renderer owns the scene buffers, the accumulation state machine and
// the per-tick frame loop; the actual light transport runs in rt/trace
// on the CPU or in rt/gpu as WebGPU compute.
package lumen

import (
	"github.com/lumen3d/lumen/rt/core"
	"github.com/lumen3d/lumen/rt/env"
	"github.com/lumen3d/lumen/rt/trace"
)

// State is the accumulation status.
type State int

const (
	StateIdle State = iota // sample budget reached, image converged
	StateSampling
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// Renderer accumulates one noisy integrator frame per tick into a
// running average. Every structural mutation (scene, camera,
// environment, options) invalidates the average and restarts at frame 1.
//
// The renderer is single-threaded by design: Tick, mutations and Image
// are called from one host loop. The tracing inside a tick fans out
// internally.
type Renderer struct {
	logger Logger
	opts   Options

	scene       *core.Scene
	camera      core.Camera
	environment *env.Map

	data   *trace.SceneData
	tracer *trace.Tracer

	state State
	frame int // frame counter, starts at 1

	width, height int
	cur, prev     []float32

	observers []Observer
}

// NewRenderer validates the options and returns a renderer in the
// sampling state with an empty scene. Observers registered here receive
// all lifecycle events; there is no global registry.
func NewRenderer(opts Options, observers ...Observer) (*Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		logger:    NewNopLogger(),
		opts:      opts,
		camera:    core.NewCamera(),
		state:     StateSampling,
		frame:     1,
		observers: observers,
	}
	r.allocate()
	return r, nil
}

func (r *Renderer) SetLogger(l Logger) {
	if l == nil {
		l = NewNopLogger()
	}
	r.logger = l
}

func (r *Renderer) allocate() {
	r.width, r.height = r.opts.renderSize()
	r.cur = make([]float32, r.width*r.height*4)
	r.prev = make([]float32, r.width*r.height*4)
}

func (r *Renderer) emit(e Event) {
	e.Frame = r.frame
	for _, obs := range r.observers {
		obs(e)
	}
}

// SetScene replaces the scene graph. Triangles, materials and BVH are
// rebuilt together as one atomic scene build.
func (r *Renderer) SetScene(scene *core.Scene) {
	r.scene = scene
	if scene != nil {
		r.data = trace.BuildSceneData(scene)
		r.logger.Debugf("scene build: %d triangles, %d materials, %d bvh nodes",
			len(r.data.Triangles), len(r.data.Materials), len(r.data.Nodes))
	} else {
		r.data = nil
	}
	r.tracer = nil
	r.Reset()
}

func (r *Renderer) SetCamera(cam core.Camera) {
	r.camera = cam
	r.tracer = nil
	r.Reset()
}

func (r *Renderer) SetEnvironment(m *env.Map) {
	r.environment = m
	if m != nil {
		m.Intensity = r.opts.EnvIntensity
		m.Rotation = r.opts.EnvRotation
	}
	r.tracer = nil
	r.Reset()
}

// SetOptions applies a new configuration. Any change, including sample
// budget or resolution scale, discards accumulated work.
func (r *Renderer) SetOptions(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	r.opts = opts
	if r.environment != nil {
		r.environment.Intensity = opts.EnvIntensity
		r.environment.Rotation = opts.EnvRotation
	}
	r.allocate()
	r.tracer = nil
	r.Reset()
	return nil
}

func (r *Renderer) Options() Options { return r.opts }
func (r *Renderer) State() State     { return r.state }
func (r *Renderer) Frame() int       { return r.frame }

// Progress reports frameCounter / (sampleBudget + 1).
func (r *Renderer) Progress() float64 {
	return float64(r.frame) / float64(r.opts.SampleBudget+1)
}

// Size returns the effective render resolution.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Reset restarts accumulation at frame 1 and discards both buffers.
// A paused renderer stays paused; idle and sampling become sampling.
func (r *Renderer) Reset() {
	r.frame = 1
	clear(r.cur)
	clear(r.prev)
	if r.state != StatePaused {
		r.state = StateSampling
	}
	r.emit(Event{Kind: EventReset})
}

// Start begins or resumes sampling.
func (r *Renderer) Start() {
	if r.state == StateSampling {
		return
	}
	r.state = StateSampling
	r.emit(Event{Kind: EventStart})
}

// Pause suspends sampling; accumulated work is kept.
func (r *Renderer) Pause() {
	if r.state != StateSampling {
		return
	}
	r.state = StatePaused
	r.emit(Event{Kind: EventPause})
}

func (r *Renderer) ensureTracer() {
	if r.tracer != nil {
		return
	}
	data := r.data
	if data == nil {
		data = &trace.SceneData{}
	}
	r.tracer = trace.NewTracer(data, r.environment, r.camera, trace.Config{
		MaxBounces:      r.opts.MaxBounces,
		SamplesPerFrame: r.opts.SamplesPerFrame,
		Workers:         r.opts.Workers,
	})
}

// Tick advances the frame loop by one host tick. When sampling and
// within budget it dispatches one integrator pass and merges the result
// into the running average as lerp(previous, sample, 1/frameCounter).
// Returns true if a frame was sampled.
func (r *Renderer) Tick() bool {
	if r.state != StateSampling || r.frame > r.opts.SampleBudget {
		return false
	}

	r.ensureTracer()
	sample := r.tracer.TraceFrame(r.width, r.height, uint32(r.frame))

	weight := 1 / float32(r.frame)
	for i := range r.cur {
		r.cur[i] = r.prev[i] + (sample[i]-r.prev[i])*weight
	}
	r.cur, r.prev = r.prev, r.cur // accumulated image now in prev

	r.frame++
	r.emit(Event{Kind: EventProgress, Progress: r.Progress()})

	if r.frame > r.opts.SampleBudget {
		r.state = StateIdle
		r.logger.Infof("render complete: %d frames at %dx%d", r.opts.SampleBudget, r.width, r.height)
		r.emit(Event{Kind: EventComplete, Progress: r.Progress()})
	}
	return true
}

// Image returns a copy of the accumulated linear RGBA image.
func (r *Renderer) Image() []float32 {
	out := make([]float32, len(r.prev))
	copy(out, r.prev)
	return out
}
