package main

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lumen3d/lumen"
	"github.com/lumen3d/lumen/assets"
	"github.com/lumen3d/lumen/core"
	"github.com/lumen3d/lumen/gpu"
	"github.com/lumen3d/lumen/pick"
	"github.com/lumen3d/lumen/shadow"
)

const (
	moveSpeed   = 12.0
	sensitivity = 0.12
	rigFPS      = 60
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Ctx     *gpu.Context
	Maps    *gpu.ShadowMapSet
	Depth   *gpu.DepthBackend
	Forward *gpu.ForwardPass

	Pipeline *lumen.Pipeline
	Log      lumen.Logger

	Registry *assets.Registry
	Scene    *core.Scene
	Camera   *core.Camera
	Rig      *core.Rig
	Light    core.DirectionalLight

	MouseCaptured bool
	LastTime      float64

	DumpShadows bool
	dumped      bool
	pickPending bool
}

func NewApp(window *glfw.Window, log lumen.Logger) *App {
	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 6, 18}
	cam.Rotation = mgl32.Vec3{15, 0, 0}

	return &App{
		Window:   window,
		Log:      log,
		Registry: assets.NewRegistry(),
		Scene:    core.NewScene(),
		Camera:   cam,
		Rig:      core.NewRig(cam, rigFPS),
		Light: core.DirectionalLight{
			Direction: mgl32.Vec3{-0.4, -1, -0.3},
			Color:     [3]float32{1, 0.96, 0.9},
			Intensity: 1,
		},
	}
}

func (a *App) Init(cfg lumen.Config, modelPath string) error {
	a.Instance = wgpu.CreateInstance(nil)

	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
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

	a.Ctx = gpu.NewContext(a.Device, a.Queue)

	a.Maps, err = gpu.NewShadowMapSet(a.Device, cfg.ShadowMapResolution, len(cfg.CascadeBoundaries))
	if err != nil {
		return err
	}
	a.Depth, err = gpu.NewDepthBackend(a.Ctx, a.Maps)
	if err != nil {
		return err
	}

	aspect := float32(width) / float32(height)
	a.Pipeline, err = lumen.NewPipeline(cfg, a.Depth, aspect, lumen.WithLogger(a.Log))
	if err != nil {
		return err
	}

	a.Forward, err = gpu.NewForwardPass(a.Ctx, a.Maps, format, uint32(width), uint32(height), shadow.DefaultBias)
	if err != nil {
		return err
	}

	if err := a.buildScene(modelPath); err != nil {
		return err
	}
	if err := a.Ctx.UploadAll(a.Registry); err != nil {
		return err
	}

	a.LastTime = glfw.GetTime()
	return nil
}

func (a *App) buildScene(modelPath string) error {
	cube := a.Registry.Register("cube", cubePositions(), cubeIndices())

	// Ground: a thin slab, never culled so the horizon stays solid.
	ground := core.NewEntity(cube)
	ground.Position = mgl32.Vec3{0, -1.05, 0}
	ground.Scale = 60
	ground.DisableFrustumCulling = true
	a.Scene.Add(ground)

	for x := -4; x <= 4; x++ {
		for z := -4; z <= 4; z++ {
			e := core.NewEntity(cube)
			e.Position = mgl32.Vec3{float32(x) * 6, 1.2, float32(z) * 6}
			e.Rotation = mgl32.Vec3{0, float32((x*7 + z*13) % 360), 0}
			e.Scale = 1
			a.Scene.Add(e)
		}
	}

	if modelPath != "" {
		id, err := a.Registry.LoadGLTF(modelPath)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		e := core.NewEntity(id)
		e.Position = mgl32.Vec3{0, 3, 0}
		e.Scale = 2
		a.Scene.Add(e)
		a.Log.Infof("loaded model %s", modelPath)
	}
	return nil
}

func (a *App) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.Config.Width = uint32(width)
	a.Config.Height = uint32(height)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)

	a.Pipeline.SetAspect(float32(width) / float32(height))
	if err := a.Forward.Resize(uint32(width), uint32(height)); err != nil {
		a.Log.Errorf("resize: %v", err)
	}
}

func (a *App) HandleMouseMove(dx, dy float64) {
	if !a.MouseCaptured {
		return
	}
	a.Rig.TargetYaw += float32(dx) * sensitivity
	a.Rig.TargetPitch += float32(dy) * sensitivity
}

func (a *App) RequestPick() {
	a.pickPending = true
}

func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now
	if dt > 0.25 {
		dt = 0.25
	}

	var dx, dy, dz float32
	if a.keyDown(glfw.KeyW) {
		dz -= 1
	}
	if a.keyDown(glfw.KeyS) {
		dz += 1
	}
	if a.keyDown(glfw.KeyA) {
		dx -= 1
	}
	if a.keyDown(glfw.KeyD) {
		dx += 1
	}
	if a.keyDown(glfw.KeySpace) {
		dy += 1
	}
	if a.keyDown(glfw.KeyLeftShift) {
		dy -= 1
	}
	if dx != 0 || dy != 0 || dz != 0 {
		// Move the rig target with the camera's own yaw math so forward
		// tracks where the smoothed camera will face.
		scratch := core.Camera{
			Position: a.Rig.TargetPosition,
			Rotation: mgl32.Vec3{0, a.Rig.TargetYaw, 0},
		}
		s := moveSpeed * dt
		scratch.MovePosition(dx*s, dy*s, dz*s)
		a.Rig.TargetPosition = scratch.Position
	}

	a.Rig.Update()

	if a.pickPending {
		a.pickPending = false
		ray := pick.FromCamera(a.Camera)
		if hit := pick.SelectClosest(a.Scene.Entities, ray); hit != nil {
			a.Log.Infof("selected entity at %v", hit.Position)
		} else {
			a.Log.Infof("nothing under the crosshair")
		}
	}
}

func (a *App) keyDown(key glfw.Key) bool {
	return a.Window.GetKey(key) == glfw.Press
}

func (a *App) Render() error {
	frame, err := a.Pipeline.BuildFrame(a.Camera, a.Light, a.Scene, a.Registry.RadiusFunc())
	if err != nil {
		return err
	}

	surfaceTex, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("surface texture: %w", err)
	}
	defer surfaceTex.Release()

	view, err := surfaceTex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}

	if err := a.Depth.Flush(encoder); err != nil {
		return fmt.Errorf("shadow passes: %w", err)
	}
	if err := a.Forward.Render(encoder, view, frame.View, frame.Proj, frame.Cascades, a.Light, frame.Visible); err != nil {
		return fmt.Errorf("forward pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	if a.DumpShadows && frame.ShadowsRendered && !a.dumped {
		a.dumped = true
		for i := 0; i < a.Maps.Cascades(); i++ {
			path := fmt.Sprintf("shadow-cascade-%d.png", i)
			if err := gpu.DumpShadowMap(a.Ctx, a.Maps, i, path); err != nil {
				a.Log.Errorf("dump cascade %d: %v", i, err)
			} else {
				a.Log.Infof("wrote %s", path)
			}
		}
	}
	return nil
}

func cubePositions() []mgl32.Vec3 {
	return []mgl32.Vec3{
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	}
}

func cubeIndices() []uint32 {
	return []uint32{
		0, 1, 2, 2, 3, 0, // front
		5, 4, 7, 7, 6, 5, // back
		4, 0, 3, 3, 7, 4, // left
		1, 5, 6, 6, 2, 1, // right
		3, 2, 6, 6, 7, 3, // top
		4, 5, 1, 1, 0, 4, // bottom
	}
}
