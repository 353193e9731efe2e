package window

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Subsystem is the process wide windowing state. GLFW is initialized when
// the first window opens and terminated when the last one is destroyed.
type Subsystem struct {
	mu        sync.Mutex
	windows   int
	init      func() error
	terminate func()
}

// NewSubsystem returns a subsystem that calls init before the first window
// and terminate after the last one.
func NewSubsystem(init func() error, terminate func()) *Subsystem {
	return &Subsystem{init: init, terminate: terminate}
}

var defaultSubsystem = NewSubsystem(initGLFW, glfw.Terminate)

// DefaultSubsystem is the subsystem New uses unless WithSubsystem is given.
func DefaultSubsystem() *Subsystem {
	return defaultSubsystem
}

func initGLFW() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("vulkan is unsupported")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "initialize vulkan loader")
	}
	return nil
}

func (s *Subsystem) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.windows == 0 {
		if err := s.init(); err != nil {
			return err
		}
	}
	s.windows++
	return nil
}

func (s *Subsystem) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.windows == 0 {
		return
	}
	s.windows--
	if s.windows == 0 {
		s.terminate()
	}
}

// Windows is the number of open windows.
func (s *Subsystem) Windows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows
}
