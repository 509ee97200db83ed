// Package window provides the glfw window the presentation loop draws into.
// Everything here must run on the main OS thread.
package window

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

var (
	mu   sync.Mutex
	live bool
)

// Init initializes glfw and loads Vulkan through it.
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("window: init glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("window: glfw found no Vulkan loader")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return fmt.Errorf("window: init vulkan: %w", err)
	}
	live = true
	return nil
}

// Terminate shuts glfw down. Call it last.
func Terminate() {
	mu.Lock()
	defer mu.Unlock()
	if live {
		glfw.Terminate()
		live = false
	}
}

// Wake unblocks a Pump waiting for events. It is the one function here that
// may be called from any goroutine.
func Wake() {
	mu.Lock()
	defer mu.Unlock()
	if live {
		glfw.PostEmptyEvent()
	}
}

// Config describes the window to open.
type Config struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
}

func DefaultConfig() Config {
	return Config{
		Width:     800,
		Height:    600,
		Title:     "epsilon",
		Resizable: true,
	}
}

// Window is a glfw window with no client API. It implements render.Window.
type Window struct {
	handle *glfw.Window
	track  tracker
}

// New opens a window. Init must have been called.
func New(cfg Config) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, boolToInt(cfg.Resizable))
	handle, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("window: create window: %w", err)
	}
	w := &Window{handle: handle}
	w.track.set(handle.GetFramebufferSize())
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.track.resize(width, height)
		Logger().Debug("framebuffer resized", slog.Int("width", width), slog.Int("height", height))
	})
	Logger().Info("window opened",
		slog.String("title", cfg.Title),
		slog.String("extent", w.track.extent.String()))
	return w, nil
}

// Extent returns the framebuffer size in pixels, which differs from the
// window size on scaled displays.
func (w *Window) Extent() render.Extent { return w.track.extent }

// Pump processes pending events, blocking for at least one when wait is set.
func (w *Window) Pump(wait bool) render.Event {
	if wait {
		glfw.WaitEvents()
	} else {
		glfw.PollEvents()
	}
	return w.track.take(w.handle.ShouldClose())
}

// RequiredInstanceExtensions lists the instance extensions a surface for
// this window needs.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

// CreateSurface creates a Vulkan surface for the window.
func (w *Window) CreateSurface(inst vk.Instance) (vk.Surface, error) {
	ptr, err := w.handle.CreateWindowSurface(inst, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("window: create surface: %w", err)
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (w *Window) Destroy() {
	if w.handle == nil {
		return
	}
	w.handle.Destroy()
	w.handle = nil
}

func boolToInt(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
