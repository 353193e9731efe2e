package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ImageUsage describes how an image is going to be used, several usages can be combined.
type ImageUsage uint32

const (
	ImageUsageNone                   ImageUsage = 0
	ImageUsageColorAttachment        ImageUsage = 1 << 0
	ImageUsageDepthStencilAttachment ImageUsage = 1 << 1
	// ImageUsageDepthStencilReadOnly implies both attachment and sampled usage.
	ImageUsageDepthStencilReadOnly ImageUsage = 1 << 2
	ImageUsageColorSampled         ImageUsage = 1 << 3
	ImageUsageDepthSampled         ImageUsage = 1 << 4
	ImageUsageTransferSrc          ImageUsage = 1 << 5
	ImageUsageTransferDst          ImageUsage = 1 << 6
)

func (u ImageUsage) Has(flag ImageUsage) bool {
	return u&flag != 0
}

// FormatSize returns the size in bytes of one texel or vertex element of the given format.
func FormatSize(format vk.Format) (uint32, error) {
	switch format {
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Snorm, vk.FormatR8g8b8a8Srgb, vk.FormatB8g8r8a8Unorm:
		return 4, nil
	case vk.FormatR16g16b16a16Sfloat:
		return 8, nil
	case vk.FormatR32Uint, vk.FormatR32Sint, vk.FormatR32Sfloat:
		return 4, nil
	case vk.FormatR32g32Uint, vk.FormatR32g32Sint, vk.FormatR32g32Sfloat:
		return 8, nil
	case vk.FormatR32g32b32Uint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32Sfloat:
		return 12, nil
	case vk.FormatR32g32b32a32Uint, vk.FormatR32g32b32a32Sint, vk.FormatR32g32b32a32Sfloat:
		return 16, nil
	case vk.FormatD24UnormS8Uint:
		return 4, nil
	case vk.FormatD32Sfloat:
		return 4, nil
	case vk.FormatD32SfloatS8Uint:
		return 5, nil
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "format %d", format)
}

func formatHasStencil(format vk.Format) bool {
	switch format {
	case vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

func formatHasDepth(format vk.Format) bool {
	switch format {
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// formatAspect returns every aspect an image of the format carries.
func formatAspect(format vk.Format) vk.ImageAspectFlags {
	if formatHasDepth(format) {
		aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if formatHasStencil(format) {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
		return aspect
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// usageAccess is the layout and synchronization scope implied by an image usage.
type usageAccess struct {
	layout vk.ImageLayout
	stages vk.PipelineStageFlags
	access vk.AccessFlags
}

// usageToLayoutStageAccess resolves the first matching usage in priority order.
func usageToLayoutStageAccess(usage ImageUsage) usageAccess {
	switch {
	case usage.Has(ImageUsageColorAttachment):
		return usageAccess{
			layout: vk.ImageLayoutColorAttachmentOptimal,
			stages: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			access: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		}
	case usage.Has(ImageUsageDepthStencilAttachment):
		return usageAccess{
			layout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			stages: vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
			access: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		}
	case usage.Has(ImageUsageDepthStencilReadOnly):
		return usageAccess{
			layout: vk.ImageLayoutDepthStencilReadOnlyOptimal,
			stages: vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			access: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
		}
	case usage.Has(ImageUsageColorSampled), usage.Has(ImageUsageDepthSampled):
		return usageAccess{
			layout: vk.ImageLayoutShaderReadOnlyOptimal,
			stages: vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			access: vk.AccessFlags(vk.AccessShaderReadBit),
		}
	case usage.Has(ImageUsageTransferSrc):
		return usageAccess{
			layout: vk.ImageLayoutTransferSrcOptimal,
			stages: vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			access: vk.AccessFlags(vk.AccessTransferReadBit),
		}
	case usage.Has(ImageUsageTransferDst):
		return usageAccess{
			layout: vk.ImageLayoutTransferDstOptimal,
			stages: vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			access: vk.AccessFlags(vk.AccessTransferWriteBit),
		}
	}
	return usageAccess{layout: vk.ImageLayoutUndefined}
}

// optimalLayout is the layout an image rests in when nothing else was requested.
func optimalLayout(usage ImageUsage) vk.ImageLayout {
	if usage == ImageUsageNone {
		return vk.ImageLayoutGeneral
	}
	return usageToLayoutStageAccess(usage).layout
}

// layoutStageAccess derives barrier scopes purely from a layout.
func layoutStageAccess(layout vk.ImageLayout) (vk.PipelineStageFlags, vk.AccessFlags, error) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0, nil
	case vk.ImageLayoutGeneral:
		return vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
			vk.AccessFlags(vk.AccessColorAttachmentWriteBit |
				vk.AccessDepthStencilAttachmentWriteBit |
				vk.AccessTransferWriteBit | vk.AccessTransferReadBit |
				vk.AccessShaderReadBit | vk.AccessHostWriteBit | vk.AccessHostReadBit), nil
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit), nil
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit), nil
	case vk.ImageLayoutDepthStencilReadOnlyOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
			vk.AccessFlags(vk.AccessMemoryReadBit), nil
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessInputAttachmentReadBit), nil
	case vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutTransferDstOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.AccessFlags(vk.AccessMemoryReadBit), nil
	}
	return 0, 0, errors.Wrapf(ErrUnsupportedLayout, "layout %d", layout)
}

// bufferStageAccess accumulates the scopes of every usage bit set on a buffer.
func bufferStageAccess(usage vk.BufferUsageFlags) (vk.PipelineStageFlags, vk.AccessFlags) {
	var stages vk.PipelineStageFlags
	var access vk.AccessFlags
	if usage&vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		access |= vk.AccessFlags(vk.AccessTransferReadBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		access |= vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit)
		access |= vk.AccessFlags(vk.AccessUniformReadBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
		access |= vk.AccessFlags(vk.AccessIndexReadBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
		access |= vk.AccessFlags(vk.AccessVertexAttributeReadBit)
	}
	return stages, access
}

// nativeImageUsage translates usage bits to the flags the image is created with.
func nativeImageUsage(usage ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage.Has(ImageUsageColorAttachment) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if usage.Has(ImageUsageDepthStencilAttachment) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if usage.Has(ImageUsageColorSampled) || usage.Has(ImageUsageDepthSampled) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage.Has(ImageUsageDepthStencilReadOnly) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit)
	}
	if usage.Has(ImageUsageTransferDst) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	if usage.Has(ImageUsageTransferSrc) {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	return flags
}

// viewAspect picks the aspect a view exposes for the requested usage, first match wins.
func viewAspect(format vk.Format, usage ImageUsage) vk.ImageAspectFlags {
	switch {
	case usage.Has(ImageUsageColorAttachment):
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	case usage.Has(ImageUsageDepthStencilAttachment):
		aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if formatHasStencil(format) {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
		return aspect
	case usage.Has(ImageUsageDepthStencilReadOnly):
		if usage.Has(ImageUsageDepthSampled) {
			return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		}
		return 0
	case usage.Has(ImageUsageColorSampled):
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	case usage.Has(ImageUsageDepthSampled):
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return formatAspect(format)
}
