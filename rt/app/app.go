// Package app is the interactive WebGPU viewer: a glfw window, the
// three render passes (raytrace, accumulate, blit) and a fly camera.
// Progressive accumulation restarts whenever the camera moves.
package app

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen"
	"github.com/lumen3d/lumen/rt/core"
	"github.com/lumen3d/lumen/rt/env"
	"github.com/lumen3d/lumen/rt/gpu"
	"github.com/lumen3d/lumen/rt/shaders"
	"github.com/lumen3d/lumen/rt/trace"
)

// FlyCamera is the interactive camera: yaw/pitch orientation plus WASD
// translation, converted to a render camera each frame.
type FlyCamera struct {
	Position      mgl32.Vec3
	Yaw           float32
	Pitch         float32
	Speed         float32
	Sensitivity   float32
	FovY          float32
	FocalDistance float32
	Aperture      float32
}

func NewFlyCamera() *FlyCamera {
	return &FlyCamera{
		Position:      mgl32.Vec3{0, 1, 5},
		Speed:         4,
		Sensitivity:   0.002,
		FovY:          45,
		FocalDistance: 5,
	}
}

func (c *FlyCamera) Forward() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	return mgl32.Vec3{
		cp * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		-cp * float32(math.Cos(float64(c.Yaw))),
	}
}

func (c *FlyCamera) Right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *FlyCamera) Camera() core.Camera {
	cam := core.NewCamera()
	cam.Position = c.Position
	cam.Forward = c.Forward()
	cam.FovY = c.FovY
	cam.FocalDistance = c.FocalDistance
	cam.Aperture = c.Aperture
	return cam
}

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	RaytracePipeline   *wgpu.ComputePipeline
	AccumulatePipeline *wgpu.ComputePipeline
	BlitPipeline       *wgpu.RenderPipeline

	BufferManager *gpu.BufferManager

	Camera *FlyCamera
	Scene  *core.Scene
	Env    *env.Map
	Opts   lumen.Options

	data  *trace.SceneData
	state lumen.State
	frame uint32

	MouseCaptured bool
	LastTime      float64

	FrameCount int
	FPS        float64
	FPSTime    float64
	lastRender float64
}

func NewApp(window *glfw.Window, scene *core.Scene, environment *env.Map, opts lumen.Options) *App {
	return &App{
		Window: window,
		Camera: NewFlyCamera(),
		Scene:  scene,
		Env:    environment,
		Opts:   opts,
		state:  lumen.StateSampling,
		frame:  1,
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	// Pipelines, layout auto
	rtModule, _ := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Raytrace CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RaytraceWGSL},
	})
	a.RaytracePipeline, err = a.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "Raytrace Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     rtModule,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return err
	}

	accModule, _ := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Accumulate CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.AccumulateWGSL},
	})
	a.AccumulatePipeline, err = a.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "Accumulate Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     accModule,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return err
	}

	fsModule, _ := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Fullscreen VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FullscreenWGSL},
	})
	a.BlitPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     fsModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	a.BufferManager = gpu.NewBufferManager(a.Device)

	a.data = trace.BuildSceneData(a.Scene)
	a.BufferManager.UpdateScene(a.data)
	a.BufferManager.UpdateEnvironment(a.Env)
	a.BufferManager.UpdateParams(a.params())
	a.BufferManager.ResizeTargets(uint32(width), uint32(height))
	a.BufferManager.CreateBindGroups(a.RaytracePipeline, a.AccumulatePipeline, a.BlitPipeline)

	a.LastTime = glfw.GetTime()
	return nil
}

func (a *App) params() gpu.Params {
	p := gpu.NewParams(a.Camera.Camera(), a.Config.Width, a.Config.Height, a.frame)
	p.SamplesPerFrame = uint32(a.Opts.SamplesPerFrame)
	p.MaxBounces = uint32(a.Opts.MaxBounces)
	if a.Env != nil {
		p.HasEnv = true
		p.EnvIntensity = a.Env.Intensity
		p.EnvRotation = a.Env.Rotation
	}
	return p
}

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)

	if a.BufferManager.ResizeTargets(uint32(w), uint32(h)) {
		a.BufferManager.CreateBindGroups(a.RaytracePipeline, a.AccumulatePipeline, a.BlitPipeline)
	}
	a.Reset()
}

// Reset restarts accumulation at frame 1. Paused stays paused.
func (a *App) Reset() {
	a.frame = 1
	if a.state != lumen.StatePaused {
		a.state = lumen.StateSampling
	}
}

func (a *App) TogglePause() {
	switch a.state {
	case lumen.StateSampling:
		a.state = lumen.StatePaused
	case lumen.StatePaused, lumen.StateIdle:
		a.state = lumen.StateSampling
	}
}

func (a *App) HandleMouseMove(dx, dy float64) {
	if !a.MouseCaptured {
		return
	}
	a.Camera.Yaw += float32(dx) * a.Camera.Sensitivity
	a.Camera.Pitch -= float32(dy) * a.Camera.Sensitivity

	limit := float32(math.Pi/2 - 0.01)
	a.Camera.Pitch = mgl32.Clamp(a.Camera.Pitch, -limit, limit)
	a.Reset()
}

// Update advances the fly camera from held keys. Any movement discards
// the accumulated image.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now

	var move mgl32.Vec3
	if a.Window.GetKey(glfw.KeyW) == glfw.Press {
		move = move.Add(a.Camera.Forward())
	}
	if a.Window.GetKey(glfw.KeyS) == glfw.Press {
		move = move.Sub(a.Camera.Forward())
	}
	if a.Window.GetKey(glfw.KeyD) == glfw.Press {
		move = move.Add(a.Camera.Right())
	}
	if a.Window.GetKey(glfw.KeyA) == glfw.Press {
		move = move.Sub(a.Camera.Right())
	}
	if a.Window.GetKey(glfw.KeyE) == glfw.Press {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if a.Window.GetKey(glfw.KeyQ) == glfw.Press {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}

	if move.Len() > 0 {
		a.Camera.Position = a.Camera.Position.Add(move.Normalize().Mul(a.Camera.Speed * dt))
		a.Reset()
	}
}

func (a *App) Render() {
	sampling := a.state == lumen.StateSampling && a.frame <= uint32(a.Opts.SampleBudget)
	if sampling {
		a.BufferManager.UpdateParams(a.params())
	}

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		fmt.Printf("ERROR: GetCurrentTexture failed: %v\n", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		fmt.Printf("ERROR: CreateView failed: %v\n", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		fmt.Printf("ERROR: CreateCommandEncoder failed: %v\n", err)
		return
	}

	wgX := (a.Config.Width + 7) / 8
	wgY := (a.Config.Height + 7) / 8

	if sampling {
		cPass := encoder.BeginComputePass(nil)
		cPass.SetPipeline(a.RaytracePipeline)
		cPass.SetBindGroup(0, a.BufferManager.SceneBindGroup, nil)
		cPass.SetBindGroup(1, a.BufferManager.TargetBindGroup, nil)
		cPass.DispatchWorkgroups(wgX, wgY, 1)
		if err := cPass.End(); err != nil {
			fmt.Printf("ERROR: raytrace pass End failed: %v\n", err)
		}

		aPass := encoder.BeginComputePass(nil)
		aPass.SetPipeline(a.AccumulatePipeline)
		aPass.SetBindGroup(0, a.BufferManager.AccumBindGroup, nil)
		aPass.DispatchWorkgroups(wgX, wgY, 1)
		if err := aPass.End(); err != nil {
			fmt.Printf("ERROR: accumulate pass End failed: %v\n", err)
		}
	}

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rPass.SetPipeline(a.BlitPipeline)
	rPass.SetBindGroup(0, a.BufferManager.BlitBindGroup, nil)
	rPass.Draw(3, 1, 0, 0)
	if err := rPass.End(); err != nil {
		fmt.Printf("ERROR: blit pass End failed: %v\n", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		fmt.Printf("ERROR: Encoder Finish failed: %v\n", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	if sampling {
		a.frame++
		if a.frame > uint32(a.Opts.SampleBudget) {
			a.state = lumen.StateIdle
		}
	}

	now := glfw.GetTime()
	if a.lastRender > 0 {
		a.FrameCount++
		a.FPSTime += now - a.lastRender
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
		}
	}
	a.lastRender = now
}
