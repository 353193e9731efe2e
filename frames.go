package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// stagingResource is a transient upload object. Exactly one of buffer or image is set.
type stagingResource struct {
	buffer vk.Buffer
	image  vk.Image
	memory vk.DeviceMemory
}

// frame is one slot of the ring. Commands recorded before drawing go to
// setup, everything else to draw.
type frame struct {
	pool    vk.CommandPool
	setup   vk.CommandBuffer
	draw    vk.CommandBuffer
	staging []stagingResource
}

func (c *Controller) createFrame() (frame, error) {
	pool, err := c.driver.CreateCommandPool(&vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: c.ctx.GraphicsQueueIndex(),
	})
	if err != nil {
		return frame{}, err
	}

	f := frame{pool: pool}
	if f.setup, err = c.driver.AllocateCommandBuffer(pool, vk.CommandBufferLevelPrimary); err != nil {
		c.driver.DestroyCommandPool(pool)
		return frame{}, errors.Wrap(err, "setup buffer")
	}
	if f.draw, err = c.driver.AllocateCommandBuffer(pool, vk.CommandBufferLevelPrimary); err != nil {
		c.driver.DestroyCommandPool(pool)
		return frame{}, errors.Wrap(err, "draw buffer")
	}
	return f, nil
}

func (c *Controller) currentFrame() *frame {
	return &c.frames[c.frameIndex]
}

func (c *Controller) drawBuffer() vk.CommandBuffer {
	return c.frames[c.frameIndex].draw
}

func (c *Controller) beginFrame() error {
	f := c.currentFrame()
	flags := vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	if err := c.driver.BeginCommandBuffer(f.setup, flags); err != nil {
		return err
	}
	return c.driver.BeginCommandBuffer(f.draw, flags)
}

func (c *Controller) endCurrentFrame() error {
	f := c.currentFrame()
	if err := c.driver.EndCommandBuffer(f.setup); err != nil {
		return err
	}
	return c.driver.EndCommandBuffer(f.draw)
}

func (c *Controller) releaseStaging(f *frame) {
	for _, s := range f.staging {
		if s.buffer != nil {
			c.driver.DestroyBuffer(s.buffer)
		}
		if s.image != nil {
			c.driver.DestroyImage(s.image)
		}
		c.driver.FreeMemory(s.memory)
	}
	f.staging = f.staging[:0]
}

// EndFrame submits the current slot, moves to the next one and reopens it
// for recording. The next slot's staging resources are released since the
// device finished with them a full ring ago.
func (c *Controller) EndFrame() error {
	if err := c.endCurrentFrame(); err != nil {
		return errors.Wrap(err, "end frame")
	}

	f := c.currentFrame()
	if err := c.ctx.SwapBuffers(f.setup, f.draw); err != nil {
		return errors.Wrap(err, "swap buffers")
	}

	c.frameIndex = (c.frameIndex + 1) % len(c.frames)

	if err := c.beginFrame(); err != nil {
		return errors.Wrap(err, "begin frame")
	}

	next := c.currentFrame()
	if n := len(next.staging); n > 0 {
		c.log.Debug("releasing staging resources", slog.Int("frame", c.frameIndex), slog.Int("count", n))
	}
	c.releaseStaging(next)
	return nil
}

// FrameIndex is the ring slot currently recording.
func (c *Controller) FrameIndex() int {
	return c.frameIndex
}

// FrameCount is the depth of the ring.
func (c *Controller) FrameCount() int {
	return len(c.frames)
}
