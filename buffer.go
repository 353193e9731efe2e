package vkgc

import (
	"github.com/cockroachdb/errors"
	units "github.com/docker/go-units"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// IndexType is the element type of an index buffer.
type IndexType uint32

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

func (t IndexType) native() vk.IndexType {
	if t == IndexTypeUint16 {
		return vk.IndexTypeUint16
	}
	return vk.IndexTypeUint32
}

// Size in bytes of one index.
func (t IndexType) Size() uint32 {
	if t == IndexTypeUint16 {
		return 2
	}
	return 4
}

type buffer struct {
	native     vk.Buffer
	memory     vk.DeviceMemory
	size       uint64
	usage      vk.BufferUsageFlags
	indexType  vk.IndexType
	indexCount uint32
}

// createDeviceBuffer allocates a device local buffer and, when data is given,
// uploads it through a staging buffer in the current frame.
func (c *Controller) createDeviceBuffer(usage vk.BufferUsageFlags, size uint64, data []byte) (buffer, error) {
	if size == 0 {
		return buffer{}, ErrZeroSize
	}
	if data != nil && uint64(len(data)) != size {
		return buffer{}, errors.Wrapf(ErrSizeMismatch, "got %d bytes for a %d byte buffer", len(data), size)
	}

	native, memory, err := c.allocateBuffer(
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		size,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return buffer{}, err
	}
	b := buffer{native: native, memory: memory, size: size, usage: usage}

	if data != nil {
		if err := c.copyToBuffer(&b, data); err != nil {
			c.driver.DestroyBuffer(native)
			c.driver.FreeMemory(memory)
			return buffer{}, err
		}
		c.bufferBarrier(&b)
	}
	return b, nil
}

func (c *Controller) copyToBuffer(b *buffer, data []byte) error {
	staging, err := c.createStagingBuffer(data)
	if err != nil {
		return err
	}
	c.driver.CmdCopyBuffer(c.drawBuffer(), staging, b.native, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(len(data)),
	}})
	return nil
}

// bufferBarrier makes the whole buffer visible to the stages its usage implies.
func (c *Controller) bufferBarrier(b *buffer) {
	srcStages, srcAccess := bufferStageAccess(b.usage)
	dstStages, dstAccess := bufferStageAccess(b.usage)
	c.driver.CmdPipelineBarrier(c.drawBuffer(), srcStages, dstStages, []vk.BufferMemoryBarrier{{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              b.native,
		Offset:              0,
		Size:                vk.DeviceSize(b.size),
	}}, nil)
}

func (c *Controller) appendBuffer(b buffer, kind string) BufferHandle {
	c.buffers = append(c.buffers, b)
	h := BufferHandle(len(c.buffers) - 1)
	c.log.Debug("created buffer",
		slog.String("kind", kind),
		slog.Int("handle", int(h)),
		slog.String("size", units.BytesSize(float64(b.size))))
	return h
}

// CreateVertexBuffer uploads data into a new vertex buffer of the same size.
func (c *Controller) CreateVertexBuffer(data []byte) (BufferHandle, error) {
	b, err := c.createDeviceBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), uint64(len(data)), data)
	if err != nil {
		return 0, errors.Wrap(err, "create vertex buffer")
	}
	return c.appendBuffer(b, "vertex"), nil
}

// CreateIndexBuffer uploads data into a new index buffer holding len(data)/indexType.Size() indices.
// data must hold a whole number of indices.
func (c *Controller) CreateIndexBuffer(data []byte, indexType IndexType) (BufferHandle, error) {
	if size := indexType.Size(); uint32(len(data))%size != 0 {
		return 0, errors.Wrapf(ErrSizeMismatch, "create index buffer: %d bytes is not a multiple of %d", len(data), size)
	}
	b, err := c.createDeviceBuffer(vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), uint64(len(data)), data)
	if err != nil {
		return 0, errors.Wrap(err, "create index buffer")
	}
	b.indexType = indexType.native()
	b.indexCount = uint32(len(data)) / indexType.Size()
	return c.appendBuffer(b, "index"), nil
}

// CreateUniformBuffer creates a uniform buffer of size bytes. data may be nil,
// in which case the contents are undefined until UpdateBuffer.
func (c *Controller) CreateUniformBuffer(data []byte, size uint64) (BufferHandle, error) {
	b, err := c.createDeviceBuffer(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), size, data)
	if err != nil {
		return 0, errors.Wrap(err, "create uniform buffer")
	}
	return c.appendBuffer(b, "uniform"), nil
}

// UpdateBuffer overwrites the whole buffer, data must be exactly the buffer's size.
func (c *Controller) UpdateBuffer(h BufferHandle, data []byte) error {
	b := &c.buffers[h]
	if uint64(len(data)) != b.size {
		return errors.Wrapf(ErrSizeMismatch, "buffer %d is %d bytes, got %d", h, b.size, len(data))
	}

	c.bufferBarrier(b)
	if err := c.copyToBuffer(b, data); err != nil {
		return errors.Wrapf(err, "update buffer %d", h)
	}
	c.bufferBarrier(b)
	return nil
}

func (c *Controller) BufferSize(h BufferHandle) uint64 {
	return c.buffers[h].size
}

func (c *Controller) IndexCount(h BufferHandle) uint32 {
	return c.buffers[h].indexCount
}
