// Package window opens GLFW windows for Vulkan rendering and turns their
// callbacks into typed events.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Properties describe a window to open.
type Properties struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

func DefaultProperties() Properties {
	return Properties{Title: "vkgc", Width: 1280, Height: 720}
}

type Option func(*Window)

func WithLogger(l *slog.Logger) Option {
	return func(w *Window) {
		w.log = l
	}
}

// WithSubsystem replaces the process wide subsystem.
func WithSubsystem(s *Subsystem) Option {
	return func(w *Window) {
		w.subsystem = s
	}
}

// Window is a GLFW window without a client API. All methods must be called
// from the main thread.
type Window struct {
	props     Properties
	native    *glfw.Window
	subsystem *Subsystem
	log       *slog.Logger
	handler   Handler
	iconified bool
}

func New(props Properties, opts ...Option) (*Window, error) {
	if props.Width <= 0 || props.Height <= 0 {
		return nil, errors.Newf("invalid window size %dx%d", props.Width, props.Height)
	}
	w := &Window{
		props:     props,
		subsystem: defaultSubsystem,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.subsystem.acquire(); err != nil {
		return nil, errors.Wrap(err, "open window")
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	native, err := glfw.CreateWindow(props.Width, props.Height, props.Title, nil, nil)
	if err != nil {
		w.subsystem.release()
		return nil, errors.Wrap(err, "create window")
	}
	w.native = native

	native.SetCloseCallback(func(*glfw.Window) {
		w.emit(CloseEvent{})
	})
	native.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		w.iconified = iconified
	})
	native.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})
	native.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if e := keyEvent(key, action); e != nil {
			w.emit(e)
		}
	})
	native.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.emit(MouseMovedEvent{X: x, Y: y})
	})
	native.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if e := mouseButtonEvent(button, action); e != nil {
			w.emit(e)
		}
	})

	w.log.Info("window opened",
		slog.String("title", props.Title),
		slog.Int("width", props.Width),
		slog.Int("height", props.Height),
		slog.Int("windows", w.subsystem.Windows()))
	return w, nil
}

// SetHandler replaces the event handler, a nil handler drops events.
func (w *Window) SetHandler(h Handler) {
	w.handler = h
}

func (w *Window) emit(e Event) {
	if w.handler != nil {
		w.handler(e)
	}
}

// resized reports a framebuffer size change, unless it is the side effect
// of the window being iconified.
func (w *Window) resized(width, height int) {
	if w.iconified {
		return
	}
	w.emit(ResizeEvent{Width: width, Height: height})
}

// PollEvents processes pending events and dispatches them to the handler.
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// WaitEvents blocks until at least one event arrived.
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

func (w *Window) ShouldClose() bool {
	return w.native.ShouldClose()
}

func (w *Window) IsMinimized() bool {
	return w.native.GetAttrib(glfw.Iconified) == glfw.True
}

func (w *Window) Size() (int, int) {
	return w.native.GetSize()
}

func (w *Window) FramebufferSize() (int, int) {
	return w.native.GetFramebufferSize()
}

// MonitorResolution is the video mode size of the primary monitor.
func (w *Window) MonitorResolution() (int, int) {
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return 0, 0
	}
	mode := monitor.GetVideoMode()
	return mode.Width, mode.Height
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.native.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.native.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// Destroy closes the window, closing the last one terminates GLFW.
func (w *Window) Destroy() {
	if w.native == nil {
		return
	}
	w.native.Destroy()
	w.native = nil
	w.subsystem.release()
	w.log.Info("window destroyed", slog.String("title", w.props.Title))
}
