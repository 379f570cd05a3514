package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli/v2"

	"github.com/lumen3d/lumen"
	"github.com/lumen3d/lumen/rt/app"
	"github.com/lumen3d/lumen/rt/core"
	"github.com/lumen3d/lumen/rt/env"
)

func init() {
	runtime.LockOSThread()
}

func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "width", Value: 800, Usage: "frame width"},
		&cli.IntFlag{Name: "height", Value: 600, Usage: "frame height"},
		&cli.IntFlag{Name: "budget", Value: 64, Usage: "total frames to accumulate"},
		&cli.IntFlag{Name: "spf", Value: 1, Usage: "samples per pixel per frame"},
		&cli.IntFlag{Name: "bounces", Value: 4, Usage: "maximum ray depth"},
		&cli.Float64Flag{Name: "scale", Value: 1, Usage: "resolution scale in (0, 1]"},
		&cli.StringFlag{Name: "env", Usage: "equirect environment image (png or jpeg)"},
		&cli.Float64Flag{Name: "env-intensity", Value: 1, Usage: "environment intensity multiplier"},
		&cli.Float64Flag{Name: "env-rotation", Value: 0, Usage: "environment azimuth rotation in radians"},
	}
}

func main() {
	cliApp := &cli.App{
		Name:  "lumen",
		Usage: "progressive Monte-Carlo path tracer",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "v", Usage: "enable verbose logging"},
		},
		Commands: []*cli.Command{
			{
				Name:  "render",
				Usage: "render the demo scene to a png",
				Description: `Accumulate the full sample budget on the CPU integrator and
write the tonemapped result.`,
				Flags: append(renderFlags(),
					&cli.IntFlag{Name: "workers", Value: 0, Usage: "tracing goroutines, 0 = all cores"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "frame.png", Usage: "output image filename"},
				),
				Action: renderFrame,
			},
			{
				Name:  "view",
				Usage: "open the interactive WebGPU viewer",
				Description: `Fly through the demo scene with WASD + mouse (Tab captures the
cursor). Accumulation restarts whenever the camera moves; Space
pauses it.`,
				Flags:  renderFlags(),
				Action: renderInteractive,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func optionsFromFlags(ctx *cli.Context) lumen.Options {
	opts := lumen.DefaultOptions()
	opts.Width = ctx.Int("width")
	opts.Height = ctx.Int("height")
	opts.SampleBudget = ctx.Int("budget")
	opts.SamplesPerFrame = ctx.Int("spf")
	opts.MaxBounces = ctx.Int("bounces")
	opts.ResolutionScale = float32(ctx.Float64("scale"))
	opts.EnvIntensity = float32(ctx.Float64("env-intensity"))
	opts.EnvRotation = float32(ctx.Float64("env-rotation"))
	return opts
}

func environmentFromFlags(ctx *cli.Context) (*env.Map, error) {
	intensity := float32(ctx.Float64("env-intensity"))
	rotation := float32(ctx.Float64("env-rotation"))

	path := ctx.String("env")
	if path == "" {
		return env.NewGradient(
			mgl32.Vec3{0.35, 0.55, 0.95},
			mgl32.Vec3{0.95, 0.95, 1},
			mgl32.Vec3{0.25, 0.22, 0.2},
			intensity,
		), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	m, err := env.FromImage(img, intensity, rotation)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// demoScene is a small material test: a ground plane and a row of
// spheres sweeping roughness, plus one emitter overhead.
func demoScene() *core.Scene {
	scene := core.NewScene()

	floor := core.NewMeshNode(core.NewQuadMesh(), core.NewDiffuseMaterial(mgl32.Vec3{0.6, 0.6, 0.6}))
	floor.Transform.Scale = mgl32.Vec3{40, 1, 40}
	scene.Add(floor)

	colors := []mgl32.Vec3{
		{0.9, 0.3, 0.25},
		{0.9, 0.7, 0.2},
		{0.3, 0.8, 0.35},
		{0.75, 0.75, 0.8},
	}
	for i, c := range colors {
		var mat core.Material
		if i == len(colors)-1 {
			mat = core.NewMetalMaterial(c, 0.05)
		} else {
			mat = core.NewDiffuseMaterial(c)
			mat.Roughness = 1 - float32(i)*0.3
		}
		node := core.NewMeshNode(core.NewIcosphereMesh(3), mat)
		node.Transform.Position = mgl32.Vec3{float32(i)*2.2 - 3.3, 1, 0}
		scene.Add(node)
	}

	lamp := core.NewMeshNode(core.NewIcosphereMesh(2), core.NewEmissiveMaterial(mgl32.Vec3{1, 0.95, 0.9}, 12))
	lamp.Transform.Position = mgl32.Vec3{0, 7, 2}
	scene.Add(lamp)

	return scene
}

func renderFrame(ctx *cli.Context) error {
	opts := optionsFromFlags(ctx)
	opts.Workers = ctx.Int("workers")

	r, err := lumen.NewRenderer(opts)
	if err != nil {
		return err
	}
	if ctx.Bool("v") {
		r.SetLogger(lumen.NewDefaultLogger("lumen", true))
	}

	environment, err := environmentFromFlags(ctx)
	if err != nil {
		return err
	}
	r.SetScene(demoScene())
	r.SetEnvironment(environment)

	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 3, 9}
	cam.LookAt(mgl32.Vec3{0, 1, 0})
	r.SetCamera(cam)

	for r.Tick() {
	}

	out, err := os.Create(ctx.String("out"))
	if err != nil {
		return err
	}
	defer out.Close()

	if err := png.Encode(out, r.RGBA()); err != nil {
		return err
	}
	w, h := r.Size()
	fmt.Printf("wrote %s (%dx%d, %d frames)\n", ctx.String("out"), w, h, opts.SampleBudget)
	return nil
}

func renderInteractive(ctx *cli.Context) error {
	opts := optionsFromFlags(ctx)
	if err := opts.Validate(); err != nil {
		return err
	}

	environment, err := environmentFromFlags(ctx)
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(opts.Width, opts.Height, "lumen", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	viewer := app.NewApp(window, demoScene(), environment, opts)
	viewer.Camera.Position = mgl32.Vec3{0, 3, 9}
	viewer.Camera.Pitch = -0.2
	if err := viewer.Init(); err != nil {
		return err
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		viewer.Resize(width, height)
	})

	var lastX, lastY float64
	first := true
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if first {
			lastX, lastY = xpos, ypos
			first = false
			return
		}
		viewer.HandleMouseMove(xpos-lastX, ypos-lastY)
		lastX, lastY = xpos, ypos
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyTab:
			viewer.MouseCaptured = !viewer.MouseCaptured
			if viewer.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		case glfw.KeySpace:
			viewer.TogglePause()
		case glfw.KeyR:
			viewer.Reset()
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		viewer.Update()
		viewer.Render()
	}
	return nil
}
