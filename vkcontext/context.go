// Package vkcontext creates the Vulkan instance, device and swapchain for a
// window surface and presents the frames a vkgc.Controller records.
package vkcontext

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/koala-engine/vkgc"
)

// Surfacer is the window side of a context.
type Surfacer interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (int, int)
}

type Option func(*Context)

func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// Context implements vkgc.Context on a real device. Its methods must be
// called from the thread driving the window.
type Context struct {
	cfg      Config
	log      *slog.Logger
	surfacer Surfacer

	instance    *instance
	surface     vk.Surface
	device      *device
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	renderPass  vk.RenderPass
	swapchain   *swapchain
	imageCount  int

	sync       []frameSync
	slot       int
	imageIndex uint32
	acquired   bool
	stale      bool
}

var _ vkgc.Context = (*Context)(nil)

func New(surfacer Surfacer, cfg Config, opts ...Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "context config")
	}
	c := &Context{
		cfg:      cfg,
		log:      slog.Default(),
		surfacer: surfacer,
		surface:  vk.NullSurface,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.init(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Context) init() error {
	var err error
	if c.instance, err = createInstance(c.cfg, c.surfacer.RequiredInstanceExtensions(), c.log); err != nil {
		return err
	}
	if c.surface, err = c.surfacer.CreateSurface(c.instance.native); err != nil {
		return err
	}

	devices, err := enumeratePhysicalDevices(c.instance.native)
	if err != nil {
		return err
	}
	candidate, err := selectPhysicalDevice(devices, c.surface)
	if err != nil {
		return err
	}
	if c.device, err = createDevice(candidate, c.log); err != nil {
		return err
	}

	gpu := c.device.physical.native
	formats, err := surfaceFormats(gpu, c.surface)
	if err != nil {
		return err
	}
	if c.format, err = chooseSurfaceFormat(formats); err != nil {
		return err
	}
	modes, err := surfacePresentModes(gpu, c.surface)
	if err != nil {
		return err
	}
	c.presentMode = choosePresentMode(modes, c.cfg.VSync)

	if c.renderPass, err = createScreenRenderPass(c.device.native, c.format.Format); err != nil {
		return err
	}

	ok, err := c.buildSwapchain()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("surface has no drawable area")
	}
	c.imageCount = len(c.swapchain.images)

	c.sync = make([]frameSync, c.imageCount)
	for i := range c.sync {
		if c.sync[i], err = createFrameSync(c.device.native); err != nil {
			return err
		}
	}
	return c.acquire()
}

// buildSwapchain replaces the current swapchain. It reports false without
// touching the current one when the surface has zero area.
func (c *Context) buildSwapchain() (bool, error) {
	caps, err := surfaceCapabilities(c.device.physical.native, c.surface)
	if err != nil {
		return false, err
	}
	width, height := c.surfacer.FramebufferSize()
	extent := chooseExtent(caps, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return false, nil
	}

	old := vk.NullSwapchain
	if c.swapchain != nil {
		old = c.swapchain.native
	}
	next, err := createSwapchain(c.device, swapchainParams{
		surface:     c.surface,
		format:      c.format,
		presentMode: c.presentMode,
		renderPass:  c.renderPass,
		caps:        caps,
		extent:      extent,
		imageCount:  chooseImageCount(caps, c.cfg.ImageCount),
		old:         old,
	})
	if err != nil {
		return false, err
	}
	if c.swapchain != nil {
		c.swapchain.destroy(c.device.native)
	}
	c.swapchain = next

	c.log.Info("created swapchain",
		slog.Int("width", int(extent.Width)),
		slog.Int("height", int(extent.Height)),
		slog.Int("images", len(next.images)),
		slog.Int("present_mode", int(c.presentMode)),
		slog.Int("format", int(c.format.Format)))
	return true, nil
}

func (c *Context) recreate() (bool, error) {
	if err := c.device.waitIdle(); err != nil {
		return false, err
	}
	ok, err := c.buildSwapchain()
	if err != nil {
		return false, errors.Wrap(err, "recreate swapchain")
	}
	if !ok {
		c.log.Debug("swapchain recreation deferred, surface has no area")
		return false, nil
	}
	c.stale = false
	return true, nil
}

// acquire waits until the current slot's previous submission finished, then
// takes the next swapchain image unless the swapchain cannot be rebuilt yet.
func (c *Context) acquire() error {
	s := &c.sync[c.slot]
	if err := s.wait(c.device.native); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		if c.stale {
			ok, err := c.recreate()
			if err != nil || !ok {
				return err
			}
		}
		res := vk.AcquireNextImage(c.device.native, c.swapchain.native, waitForever,
			s.imageAvailable, vk.NullFence, &c.imageIndex)
		switch res {
		case vk.Success:
			c.acquired = true
			return nil
		case vk.Suboptimal:
			c.acquired = true
			c.stale = true
			return nil
		case vk.ErrorOutOfDate:
			c.stale = true
		default:
			return errors.Wrap(vk.Error(res), "acquire swapchain image")
		}
	}
	return errors.New("swapchain out of date after recreation")
}

// SwapBuffers submits setup then draw and presents the acquired image. When
// no image could be acquired the buffers are still submitted but nothing is
// presented.
func (c *Context) SwapBuffers(setup, draw vk.CommandBuffer) error {
	s := &c.sync[c.slot]
	if err := s.reset(c.device.native); err != nil {
		return err
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 2,
		PCommandBuffers:    []vk.CommandBuffer{setup, draw},
	}
	if c.acquired {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{s.imageAvailable}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vk.Semaphore{s.renderFinished}
	}
	if err := vk.Error(vk.QueueSubmit(c.device.graphicsQueue, 1, []vk.SubmitInfo{submit}, s.fence)); err != nil {
		return errors.Wrap(err, "submit frame")
	}

	if c.acquired {
		present := vk.PresentInfo{
			SType:              vk.StructureTypePresentInfo,
			WaitSemaphoreCount: 1,
			PWaitSemaphores:    []vk.Semaphore{s.renderFinished},
			SwapchainCount:     1,
			PSwapchains:        []vk.Swapchain{c.swapchain.native},
			PImageIndices:      []uint32{c.imageIndex},
		}
		switch res := vk.QueuePresent(c.device.presentQueue, &present); res {
		case vk.Success:
		case vk.Suboptimal, vk.ErrorOutOfDate:
			c.stale = true
		default:
			return errors.Wrap(vk.Error(res), "present frame")
		}
		c.acquired = false
	}

	c.slot = (c.slot + 1) % len(c.sync)
	return c.acquire()
}

// Resize marks the swapchain for recreation before the next acquire.
func (c *Context) Resize() {
	c.stale = true
}

// Ready reports whether a swapchain image is acquired for the frame being
// recorded. While it is false nothing should be drawn to the screen.
func (c *Context) Ready() bool {
	return c.acquired
}

func (c *Context) Sync() error {
	return c.device.waitIdle()
}

func (c *Context) Device() vk.Device {
	return c.device.native
}

func (c *Context) GraphicsQueueIndex() uint32 {
	return c.device.graphicsIndex
}

func (c *Context) PhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return c.device.physical.memory
}

// SwapchainImageCount stays at the count of the first swapchain.
func (c *Context) SwapchainImageCount() int {
	return c.imageCount
}

func (c *Context) SwapchainExtent() vk.Extent2D {
	return c.swapchain.extent
}

func (c *Context) SwapchainRenderPass() vk.RenderPass {
	return c.renderPass
}

// SwapchainFramebuffer is the framebuffer of the acquired image.
func (c *Context) SwapchainFramebuffer() vk.Framebuffer {
	return c.swapchain.framebuffers[c.imageIndex]
}

func (c *Context) PhysicalDeviceName() string {
	return c.device.physical.name()
}

func (c *Context) DeviceInfo() DeviceInfo {
	return c.device.physical.info()
}

// Destroy waits for the device and releases everything in reverse order of
// creation. It is safe on a partially created context.
func (c *Context) Destroy() {
	if c.device != nil {
		if err := c.device.waitIdle(); err != nil {
			c.log.Warn("device not idle on destroy", slog.Any("error", err))
		}
		for i := range c.sync {
			c.sync[i].destroy(c.device.native)
		}
		c.sync = nil
		if c.swapchain != nil {
			c.swapchain.destroy(c.device.native)
			c.swapchain = nil
		}
		if c.renderPass != vk.NullRenderPass {
			vk.DestroyRenderPass(c.device.native, c.renderPass, nil)
			c.renderPass = vk.NullRenderPass
		}
		c.device.destroy()
		c.device = nil
	}
	if c.instance != nil {
		if c.surface != vk.NullSurface {
			vk.DestroySurface(c.instance.native, c.surface, nil)
			c.surface = vk.NullSurface
		}
		c.instance.destroy()
		c.instance = nil
	}
}
