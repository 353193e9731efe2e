package vkgc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		format vk.Format
		size   uint32
	}{
		{vk.FormatR8g8b8a8Unorm, 4},
		{vk.FormatB8g8r8a8Unorm, 4},
		{vk.FormatR32g32Sfloat, 8},
		{vk.FormatR32g32b32Sfloat, 12},
		{vk.FormatR32g32b32a32Sfloat, 16},
		{vk.FormatR16g16b16a16Sfloat, 8},
		{vk.FormatD32Sfloat, 4},
		{vk.FormatD24UnormS8Uint, 4},
		{vk.FormatD32SfloatS8Uint, 5},
	}
	for _, tt := range tests {
		size, err := FormatSize(tt.format)
		require.NoError(t, err)
		assert.Equal(t, tt.size, size, "format %d", tt.format)
	}

	_, err := FormatSize(vk.FormatBc1RgbUnormBlock)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestUsageToLayoutStageAccess(t *testing.T) {
	tests := []struct {
		name   string
		usage  ImageUsage
		layout vk.ImageLayout
	}{
		{"none", ImageUsageNone, vk.ImageLayoutUndefined},
		{"color attachment wins over sampled", ImageUsageColorAttachment | ImageUsageColorSampled, vk.ImageLayoutColorAttachmentOptimal},
		{"depth attachment", ImageUsageDepthStencilAttachment | ImageUsageDepthSampled, vk.ImageLayoutDepthStencilAttachmentOptimal},
		{"depth read only", ImageUsageDepthStencilReadOnly, vk.ImageLayoutDepthStencilReadOnlyOptimal},
		{"sampled", ImageUsageColorSampled | ImageUsageTransferDst, vk.ImageLayoutShaderReadOnlyOptimal},
		{"depth sampled", ImageUsageDepthSampled, vk.ImageLayoutShaderReadOnlyOptimal},
		{"transfer src", ImageUsageTransferSrc | ImageUsageTransferDst, vk.ImageLayoutTransferSrcOptimal},
		{"transfer dst", ImageUsageTransferDst, vk.ImageLayoutTransferDstOptimal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ua := usageToLayoutStageAccess(tt.usage)
			assert.Equal(t, tt.layout, ua.layout)
			if tt.usage == ImageUsageNone {
				assert.Zero(t, ua.stages)
				assert.Zero(t, ua.access)
			} else {
				assert.NotZero(t, ua.stages)
			}
		})
	}
}

func TestOptimalLayout(t *testing.T) {
	assert.Equal(t, vk.ImageLayoutGeneral, optimalLayout(ImageUsageNone))
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, optimalLayout(ImageUsageColorSampled))
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, optimalLayout(ImageUsageColorAttachment|ImageUsageColorSampled))
}

func TestLayoutStageAccess(t *testing.T) {
	stages, access, err := layoutStageAccess(vk.ImageLayoutUndefined)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), stages)
	assert.Zero(t, access)

	stages, _, err = layoutStageAccess(vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), stages)

	_, _, err = layoutStageAccess(vk.ImageLayoutPresentSrc)
	assert.True(t, errors.Is(err, ErrUnsupportedLayout))
}

func TestBufferStageAccess(t *testing.T) {
	stages, access := bufferStageAccess(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit|vk.PipelineStageVertexShaderBit|vk.PipelineStageFragmentShaderBit), stages)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit|vk.AccessUniformReadBit), access)
}

func TestViewAspect(t *testing.T) {
	depth := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	stencil := vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	color := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	assert.Equal(t, color, viewAspect(vk.FormatR8g8b8a8Unorm, ImageUsageColorSampled))
	assert.Equal(t, depth|stencil, viewAspect(vk.FormatD24UnormS8Uint, ImageUsageDepthStencilAttachment))
	assert.Equal(t, depth, viewAspect(vk.FormatD32Sfloat, ImageUsageDepthStencilAttachment))
	assert.Equal(t, depth, viewAspect(vk.FormatD24UnormS8Uint, ImageUsageDepthStencilReadOnly|ImageUsageDepthSampled))
	assert.Zero(t, viewAspect(vk.FormatD24UnormS8Uint, ImageUsageDepthStencilReadOnly))
	assert.Equal(t, depth|stencil, viewAspect(vk.FormatD32SfloatS8Uint, ImageUsageNone))
}

func TestNativeImageUsage(t *testing.T) {
	flags := nativeImageUsage(ImageUsageDepthStencilReadOnly)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit|vk.ImageUsageSampledBit), flags)

	flags = nativeImageUsage(ImageUsageColorAttachment | ImageUsageTransferDst)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferDstBit), flags)
}

func TestFindMemoryType(t *testing.T) {
	c, _, _ := newTestController(t)

	i, err := c.findMemoryType(0x3, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), i)

	i, err = c.findMemoryType(0x3, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), i)

	_, err = c.findMemoryType(0x1, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	assert.True(t, errors.Is(err, ErrNoMemoryType))
}
