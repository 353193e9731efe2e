package vkgc

import (
	"github.com/cockroachdb/errors"
	units "github.com/docker/go-units"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// ImageInfo describes an image to create. Layers must be at least 1, and so
// must Depth for anything that is not a 3D image.
type ImageInfo struct {
	Format   vk.Format
	Width    uint32
	Height   uint32
	Depth    uint32
	Layers   uint32
	ViewType vk.ImageViewType
	Usage    ImageUsage
}

// ImageDataInfo is pixel data for UpdateImage. When Format differs from the
// image format the upload goes through a blit that converts it.
type ImageDataInfo struct {
	Format vk.Format
	Data   []byte
}

type deviceImage struct {
	info          ImageInfo
	native        vk.Image
	memory        vk.DeviceMemory
	currentLayout vk.ImageLayout
	fullAspect    vk.ImageAspectFlags
	tiling        vk.ImageTiling
}

func (i *deviceImage) extent() vk.Extent3D {
	return vk.Extent3D{Width: i.info.Width, Height: i.info.Height, Depth: i.info.Depth}
}

func imageCreateInfo(viewType vk.ImageViewType, format vk.Format, extent vk.Extent3D, layers uint32, tiling vk.ImageTiling, usage vk.ImageUsageFlags) vk.ImageCreateInfo {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		Format:        format,
		Extent:        extent,
		MipLevels:     1,
		ArrayLayers:   layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        tiling,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	switch viewType {
	case vk.ImageViewType1d, vk.ImageViewType1dArray:
		info.ImageType = vk.ImageType1d
	case vk.ImageViewType3d:
		info.ImageType = vk.ImageType3d
	case vk.ImageViewTypeCube, vk.ImageViewTypeCubeArray:
		info.ImageType = vk.ImageType2d
		info.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	default:
		info.ImageType = vk.ImageType2d
	}
	return info
}

// CreateImage allocates a device local image. It starts in the undefined
// layout and moves on the first operation that needs a specific one.
func (c *Controller) CreateImage(info ImageInfo) (ImageHandle, error) {
	formatSize, err := FormatSize(info.Format)
	if err != nil {
		return 0, errors.Wrap(err, "create image")
	}
	size := uint64(formatSize) * uint64(info.Width) * uint64(info.Height) * uint64(info.Depth) * uint64(info.Layers)

	tiling := vk.ImageTilingOptimal
	createInfo := imageCreateInfo(info.ViewType, info.Format, vk.Extent3D{
		Width: info.Width, Height: info.Height, Depth: info.Depth,
	}, info.Layers, tiling, nativeImageUsage(info.Usage))

	native, memory, err := c.allocateImage(&createInfo, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return 0, errors.Wrap(err, "create image")
	}

	c.images = append(c.images, deviceImage{
		info:          info,
		native:        native,
		memory:        memory,
		currentLayout: vk.ImageLayoutUndefined,
		fullAspect:    formatAspect(info.Format),
		tiling:        tiling,
	})
	h := ImageHandle(len(c.images) - 1)
	c.log.Debug("created image",
		slog.Int("handle", int(h)),
		slog.Int("width", int(info.Width)),
		slog.Int("height", int(info.Height)),
		slog.String("size", units.BytesSize(float64(size))))
	return h, nil
}

// imageBarrier records a layout transition of every layer of native.
func (c *Controller) imageBarrier(native vk.Image, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout, layers uint32) error {
	srcStages, srcAccess, err := layoutStageAccess(oldLayout)
	if err != nil {
		return err
	}
	dstStages, dstAccess, err := layoutStageAccess(newLayout)
	if err != nil {
		return err
	}
	c.driver.CmdPipelineBarrier(c.drawBuffer(), srcStages, dstStages, nil, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               native,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}})
	return nil
}

// imageShouldHaveLayout transitions img to layout unless it is already there.
// The undefined layout means any layout will do.
func (c *Controller) imageShouldHaveLayout(img *deviceImage, layout vk.ImageLayout) error {
	if img.currentLayout == layout || layout == vk.ImageLayoutUndefined {
		return nil
	}
	if err := c.imageBarrier(img.native, img.fullAspect, img.currentLayout, layout, img.info.Layers); err != nil {
		return err
	}
	img.currentLayout = layout
	return nil
}

func (c *Controller) copyBufferToImage(src vk.Buffer, dst vk.Image, extent vk.Extent3D, aspect vk.ImageAspectFlags, layers uint32) {
	c.driver.CmdCopyBufferToImage(c.drawBuffer(), src, dst, vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{{
		BufferOffset: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspect,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
		ImageExtent: extent,
	}})
}

// UpdateImage uploads every layer of the image. Afterwards the image is back
// in its previous layout, or in the optimal layout for its usage if it had none.
func (c *Controller) UpdateImage(h ImageHandle, data ImageDataInfo) error {
	img := &c.images[h]
	extent := img.extent()
	layers := img.info.Layers

	dataFormatSize, err := FormatSize(data.Format)
	if err != nil {
		return errors.Wrapf(err, "update image %d", h)
	}
	size := uint64(extent.Width) * uint64(extent.Height) * uint64(extent.Depth) * uint64(layers) * uint64(dataFormatSize)
	if uint64(len(data.Data)) < size {
		return errors.Wrapf(ErrSizeMismatch, "image %d needs %d bytes, got %d", h, size, len(data.Data))
	}

	finalLayout := img.currentLayout
	if finalLayout == vk.ImageLayoutUndefined {
		finalLayout = optimalLayout(img.info.Usage)
	}

	if err := c.imageShouldHaveLayout(img, vk.ImageLayoutTransferDstOptimal); err != nil {
		return errors.Wrapf(err, "update image %d", h)
	}

	staging, err := c.createStagingBuffer(data.Data[:size])
	if err != nil {
		return errors.Wrapf(err, "update image %d", h)
	}

	if data.Format == img.info.Format {
		c.copyBufferToImage(staging, img.native, extent, img.fullAspect, layers)
	} else if err := c.blitFromStaging(img, staging, data.Format); err != nil {
		return errors.Wrapf(err, "update image %d", h)
	}

	if err := c.imageShouldHaveLayout(img, finalLayout); err != nil {
		return errors.Wrapf(err, "update image %d", h)
	}
	return nil
}

// blitFromStaging uploads into an intermediate image of the data format and
// blits it into img, converting the format on the way.
func (c *Controller) blitFromStaging(img *deviceImage, staging vk.Buffer, format vk.Format) error {
	extent := img.extent()
	layers := img.info.Layers

	createInfo := imageCreateInfo(img.info.ViewType, format, extent, layers, img.tiling,
		vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit|vk.ImageUsageTransferDstBit))
	native, memory, err := c.allocateImage(&createInfo, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return errors.Wrap(err, "staging image")
	}
	f := c.currentFrame()
	f.staging = append(f.staging, stagingResource{image: native, memory: memory})

	if err := c.imageBarrier(native, img.fullAspect, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, layers); err != nil {
		return err
	}
	c.copyBufferToImage(staging, native, extent, img.fullAspect, layers)
	if err := c.imageBarrier(native, img.fullAspect, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, layers); err != nil {
		return err
	}

	subresource := vk.ImageSubresourceLayers{
		AspectMask:     img.fullAspect,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     layers,
	}
	corner := vk.Offset3D{X: int32(extent.Width), Y: int32(extent.Height), Z: int32(extent.Depth)}
	c.driver.CmdBlitImage(c.drawBuffer(),
		native, vk.ImageLayoutTransferSrcOptimal,
		img.native, vk.ImageLayoutTransferDstOptimal,
		[]vk.ImageBlit{{
			SrcSubresource: subresource,
			SrcOffsets:     [2]vk.Offset3D{{}, corner},
			DstSubresource: subresource,
			DstOffsets:     [2]vk.Offset3D{{}, corner},
		}},
		vk.FilterLinear)
	return nil
}

// createImageView creates a view of img exposing the aspect usage needs.
func (c *Controller) createImageView(img *deviceImage, usage ImageUsage) (vk.ImageView, error) {
	return c.driver.CreateImageView(&vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.native,
		ViewType: img.info.ViewType,
		Format:   img.info.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     viewAspect(img.info.Format, usage),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     img.info.Layers,
		},
	})
}

// ImageLayout is the layout the image was last transitioned into.
func (c *Controller) ImageLayout(h ImageHandle) vk.ImageLayout {
	return c.images[h].currentLayout
}
