package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Controller owns every GPU object it creates and records all commands of
// the frame loop. It must only be used from one goroutine.
type Controller struct {
	ctx              Context
	driver           Driver
	log              *slog.Logger
	cfg              Config
	memoryProperties vk.PhysicalDeviceMemoryProperties

	buffers      []buffer
	images       []deviceImage
	samplers     []sampler
	shaders      []shader
	pipelines    []pipeline
	renderPasses []renderPass
	framebuffers []framebuffer
	uniformSets  []uniformSet

	descriptorPools map[descriptorPoolKey][]descriptorPool

	frames     []frame
	frameIndex int
	inPass     bool
}

type Option func(*Controller)

// WithDriver issues native calls through d instead of the context's device.
func WithDriver(d Driver) Option {
	return func(c *Controller) {
		c.driver = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// New creates the frame ring and opens the first frame for recording.
func New(ctx Context, opts ...Option) (*Controller, error) {
	c := &Controller{
		ctx:             ctx,
		log:             slog.Default(),
		cfg:             DefaultConfig(),
		descriptorPools: make(map[descriptorPoolKey][]descriptorPool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "controller config")
	}
	if c.driver == nil {
		c.driver = NewVulkanDriver(ctx.Device())
	}
	c.memoryProperties = ctx.PhysicalDeviceMemoryProperties()

	count := ctx.SwapchainImageCount() + c.cfg.ExtraFrames
	c.frames = make([]frame, 0, count)
	for i := 0; i < count; i++ {
		f, err := c.createFrame()
		if err != nil {
			for j := range c.frames {
				c.driver.DestroyCommandPool(c.frames[j].pool)
			}
			return nil, errors.Wrapf(err, "create frame %d", i)
		}
		c.frames = append(c.frames, f)
	}

	if err := c.beginFrame(); err != nil {
		for j := range c.frames {
			c.driver.DestroyCommandPool(c.frames[j].pool)
		}
		return nil, errors.Wrap(err, "begin first frame")
	}

	c.log.Info("graphics controller initialized",
		slog.Int("frames", len(c.frames)),
		slog.Uint64("max_sets_per_pool", uint64(c.cfg.MaxSetsPerDescriptorPool)))
	return c, nil
}

// Destroy waits for the device to go idle and releases every object the
// controller created. Handles are invalid afterwards.
func (c *Controller) Destroy() error {
	if err := c.ctx.Sync(); err != nil {
		return errors.Wrap(err, "destroy")
	}
	if err := c.endCurrentFrame(); err != nil {
		c.log.Warn("ending frame on destroy", slog.Any("error", err))
	}

	for _, b := range c.buffers {
		c.driver.DestroyBuffer(b.native)
		c.driver.FreeMemory(b.memory)
	}
	c.buffers = nil

	for _, img := range c.images {
		c.driver.DestroyImage(img.native)
		c.driver.FreeMemory(img.memory)
	}
	c.images = nil

	for _, s := range c.samplers {
		c.driver.DestroySampler(s.native)
	}
	c.samplers = nil

	for i := range c.shaders {
		c.destroyShader(&c.shaders[i])
	}
	c.shaders = nil

	for _, p := range c.pipelines {
		c.driver.DestroyPipeline(p.native)
	}
	c.pipelines = nil

	for i := range c.frames {
		c.releaseStaging(&c.frames[i])
		c.driver.DestroyCommandPool(c.frames[i].pool)
	}
	c.frames = nil

	for i := range c.framebuffers {
		c.destroyFramebuffer(&c.framebuffers[i])
	}
	c.framebuffers = nil

	for _, rp := range c.renderPasses {
		c.driver.DestroyRenderPass(rp.native)
	}
	c.renderPasses = nil

	for _, us := range c.uniformSets {
		for _, view := range us.views {
			c.driver.DestroyImageView(view)
		}
	}
	c.uniformSets = nil

	var pools int
	for key, list := range c.descriptorPools {
		for _, p := range list {
			c.driver.DestroyDescriptorPool(p.native)
		}
		pools += len(list)
		delete(c.descriptorPools, key)
	}

	c.log.Info("graphics controller destroyed", slog.Int("descriptor_pools", pools))
	return nil
}
