package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// findMemoryType returns the first memory type allowed by filter that has every requested property.
func (c *Controller) findMemoryType(filter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < c.memoryProperties.MemoryTypeCount; i++ {
		if filter&(1<<i) != 0 && c.memoryProperties.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "filter %#x properties %#x", filter, properties)
}

func (c *Controller) allocate(reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	typeIndex, err := c.findMemoryType(reqs.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}
	return c.driver.AllocateMemory(uint64(reqs.Size), typeIndex)
}

// allocateBuffer creates a buffer with memory of the given properties bound to it.
func (c *Controller) allocateBuffer(usage vk.BufferUsageFlags, size uint64, properties vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	native, err := c.driver.CreateBuffer(&vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	})
	if err != nil {
		return nil, nil, err
	}

	memory, err := c.allocate(c.driver.BufferMemoryRequirements(native), properties)
	if err != nil {
		c.driver.DestroyBuffer(native)
		return nil, nil, errors.Wrap(err, "allocate buffer memory")
	}

	if err := c.driver.BindBufferMemory(native, memory); err != nil {
		c.driver.DestroyBuffer(native)
		c.driver.FreeMemory(memory)
		return nil, nil, err
	}
	return native, memory, nil
}

// allocateImage creates an image with memory of the given properties bound to it.
func (c *Controller) allocateImage(info *vk.ImageCreateInfo, properties vk.MemoryPropertyFlags) (vk.Image, vk.DeviceMemory, error) {
	native, err := c.driver.CreateImage(info)
	if err != nil {
		return nil, nil, err
	}

	memory, err := c.allocate(c.driver.ImageMemoryRequirements(native), properties)
	if err != nil {
		c.driver.DestroyImage(native)
		return nil, nil, errors.Wrap(err, "allocate image memory")
	}

	if err := c.driver.BindImageMemory(native, memory); err != nil {
		c.driver.DestroyImage(native)
		c.driver.FreeMemory(memory)
		return nil, nil, err
	}
	return native, memory, nil
}

// createStagingBuffer fills a host visible transfer source with data. The
// buffer belongs to the current frame and is released when its slot is reused.
func (c *Controller) createStagingBuffer(data []byte) (vk.Buffer, error) {
	size := uint64(len(data))
	native, memory, err := c.allocateBuffer(
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		size,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}

	ptr, err := c.driver.MapMemory(memory, 0, size)
	if err != nil {
		c.driver.DestroyBuffer(native)
		c.driver.FreeMemory(memory)
		return nil, err
	}
	copy(ToBytes(ptr, len(data)), data)
	c.driver.UnmapMemory(memory)

	f := c.currentFrame()
	f.staging = append(f.staging, stagingResource{buffer: native, memory: memory})
	return native, nil
}
