package window

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Event is anything a window reports to its Handler.
type Event interface {
	isEvent()
}

type CloseEvent struct{}

// ResizeEvent carries the new framebuffer size in pixels.
type ResizeEvent struct {
	Width  int
	Height int
}

type KeyPressedEvent struct {
	Key    glfw.Key
	Repeat bool
}

type KeyReleasedEvent struct {
	Key glfw.Key
}

type MouseMovedEvent struct {
	X float64
	Y float64
}

type MouseButtonPressedEvent struct {
	Button glfw.MouseButton
}

type MouseButtonReleasedEvent struct {
	Button glfw.MouseButton
}

func (CloseEvent) isEvent()               {}
func (ResizeEvent) isEvent()              {}
func (KeyPressedEvent) isEvent()          {}
func (KeyReleasedEvent) isEvent()         {}
func (MouseMovedEvent) isEvent()          {}
func (MouseButtonPressedEvent) isEvent()  {}
func (MouseButtonReleasedEvent) isEvent() {}

// Handler receives events synchronously from PollEvents.
type Handler func(Event)

func keyEvent(key glfw.Key, action glfw.Action) Event {
	switch action {
	case glfw.Press:
		return KeyPressedEvent{Key: key}
	case glfw.Repeat:
		return KeyPressedEvent{Key: key, Repeat: true}
	case glfw.Release:
		return KeyReleasedEvent{Key: key}
	}
	return nil
}

func mouseButtonEvent(button glfw.MouseButton, action glfw.Action) Event {
	switch action {
	case glfw.Press:
		return MouseButtonPressedEvent{Button: button}
	case glfw.Release:
		return MouseButtonReleasedEvent{Button: button}
	}
	return nil
}
