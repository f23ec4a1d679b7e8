package main

import (
	"flag"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/lumen3d/lumen"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	dump := flag.Bool("dump-shadows", false, "write the cascade depth maps as PNGs after the first frame")
	model := flag.String("model", "", "optional GLB model to place in the scene")
	flag.Parse()

	log := lumen.NewDefaultLogger("lumen-view", *debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "Lumen Viewer", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	app := NewApp(window, log)
	app.DumpShadows = *dump
	if err := app.Init(lumen.DefaultConfig(), *model); err != nil {
		panic(err)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		app.Resize(width, height)
	})

	var lastX, lastY float64
	var haveCursor bool
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if haveCursor {
			app.HandleMouseMove(xpos-lastX, ypos-lastY)
		}
		lastX, lastY = xpos, ypos
		haveCursor = true
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			app.MouseCaptured = !app.MouseCaptured
			if app.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft && action == glfw.Press {
			app.RequestPick()
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		app.Update()
		if err := app.Render(); err != nil {
			log.Errorf("frame: %v", err)
		}
	}
}
