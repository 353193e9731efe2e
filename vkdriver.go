package vkgc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

type vulkanDriver struct {
	device vk.Device
}

// NewVulkanDriver returns a Driver issuing every call against the given logical device.
func NewVulkanDriver(device vk.Device) Driver {
	return &vulkanDriver{device: device}
}

func (d *vulkanDriver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	err := vkCheck(vk.CreateCommandPool(d.device, info, nil, &pool), "create command pool")
	return pool, err
}

func (d *vulkanDriver) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.device, pool, nil)
}

func (d *vulkanDriver) AllocateCommandBuffer(pool vk.CommandPool, level vk.CommandBufferLevel) (vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	err := vkCheck(vk.AllocateCommandBuffers(d.device, &info, buffers), "allocate command buffer")
	return buffers[0], err
}

func (d *vulkanDriver) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	return vkCheck(vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}), "begin command buffer")
}

func (d *vulkanDriver) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return vkCheck(vk.EndCommandBuffer(cmd), "end command buffer")
}

func (d *vulkanDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	err := vkCheck(vk.CreateBuffer(d.device, info, nil, &buffer), "create buffer")
	return buffer, err
}

func (d *vulkanDriver) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.device, buffer, nil)
}

func (d *vulkanDriver) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &reqs)
	reqs.Deref()
	return reqs
}

func (d *vulkanDriver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	return vkCheck(vk.BindBufferMemory(d.device, buffer, memory, 0), "bind buffer memory")
}

func (d *vulkanDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	var image vk.Image
	err := vkCheck(vk.CreateImage(d.device, info, nil, &image), "create image")
	return image, err
}

func (d *vulkanDriver) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.device, image, nil)
}

func (d *vulkanDriver) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &reqs)
	reqs.Deref()
	return reqs
}

func (d *vulkanDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error {
	return vkCheck(vk.BindImageMemory(d.device, image, memory, 0), "bind image memory")
}

func (d *vulkanDriver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	err := vkCheck(vk.CreateImageView(d.device, info, nil, &view), "create image view")
	return view, err
}

func (d *vulkanDriver) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.device, view, nil)
}

func (d *vulkanDriver) AllocateMemory(size uint64, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}
	var memory vk.DeviceMemory
	err := vkCheck(vk.AllocateMemory(d.device, &info, nil, &memory), "allocate memory")
	return memory, err
}

func (d *vulkanDriver) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.device, memory, nil)
}

func (d *vulkanDriver) MapMemory(memory vk.DeviceMemory, offset, size uint64) (unsafe.Pointer, error) {
	var ptr unsafe.Pointer
	err := vkCheck(vk.MapMemory(d.device, memory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &ptr), "map memory")
	return ptr, err
}

func (d *vulkanDriver) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.device, memory)
}

func (d *vulkanDriver) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	err := vkCheck(vk.CreateSampler(d.device, info, nil, &sampler), "create sampler")
	return sampler, err
}

func (d *vulkanDriver) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(d.device, sampler, nil)
}

func (d *vulkanDriver) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	err := vkCheck(vk.CreateShaderModule(d.device, &info, nil, &module), "create shader module")
	return module, err
}

func (d *vulkanDriver) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.device, module, nil)
}

func (d *vulkanDriver) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	err := vkCheck(vk.CreateDescriptorSetLayout(d.device, info, nil, &layout), "create descriptor set layout")
	return layout, err
}

func (d *vulkanDriver) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.device, layout, nil)
}

func (d *vulkanDriver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	err := vkCheck(vk.CreatePipelineLayout(d.device, info, nil, &layout), "create pipeline layout")
	return layout, err
}

func (d *vulkanDriver) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.device, layout, nil)
}

func (d *vulkanDriver) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	var cache vk.PipelineCache
	pipelines := make([]vk.Pipeline, 1)
	err := vkCheck(vk.CreateGraphicsPipelines(d.device, cache, 1, []vk.GraphicsPipelineCreateInfo{*info}, nil, pipelines), "create graphics pipeline")
	return pipelines[0], err
}

func (d *vulkanDriver) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.device, pipeline, nil)
}

func (d *vulkanDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var pass vk.RenderPass
	err := vkCheck(vk.CreateRenderPass(d.device, info, nil, &pass), "create render pass")
	return pass, err
}

func (d *vulkanDriver) DestroyRenderPass(pass vk.RenderPass) {
	vk.DestroyRenderPass(d.device, pass, nil)
}

func (d *vulkanDriver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	err := vkCheck(vk.CreateFramebuffer(d.device, info, nil, &framebuffer), "create framebuffer")
	return framebuffer, err
}

func (d *vulkanDriver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.device, framebuffer, nil)
}

func (d *vulkanDriver) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	err := vkCheck(vk.CreateDescriptorPool(d.device, info, nil, &pool), "create descriptor pool")
	return pool, err
}

func (d *vulkanDriver) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.device, pool, nil)
}

func (d *vulkanDriver) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	err := vkCheck(vk.AllocateDescriptorSets(d.device, &info, &set), "allocate descriptor set")
	return set, err
}

func (d *vulkanDriver) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.device, uint32(len(writes)), writes, 0, nil)
}

func (d *vulkanDriver) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, src, dst, 0, 0, nil, uint32(len(buffers)), buffers, uint32(len(images)), images)
}

func (d *vulkanDriver) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}

func (d *vulkanDriver) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, uint32(len(regions)), regions)
}

func (d *vulkanDriver) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

func (d *vulkanDriver) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cmd, info, vk.SubpassContentsInline)
}

func (d *vulkanDriver) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (d *vulkanDriver) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vulkanDriver) CmdBindVertexBuffer(cmd vk.CommandBuffer, binding uint32, buffer vk.Buffer, offset uint64) {
	vk.CmdBindVertexBuffers(cmd, binding, 1, []vk.Buffer{buffer}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (d *vulkanDriver) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset uint64, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, vk.DeviceSize(offset), indexType)
}

func (d *vulkanDriver) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, firstSet, uint32(len(sets)), sets, 0, nil)
}

func (d *vulkanDriver) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
}

func (d *vulkanDriver) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (d *vulkanDriver) CmdSetLineWidth(cmd vk.CommandBuffer, width float32) {
	vk.CmdSetLineWidth(cmd, width)
}

func (d *vulkanDriver) CmdSetStencilReference(cmd vk.CommandBuffer, faces vk.StencilFaceFlags, reference uint32) {
	vk.CmdSetStencilReference(cmd, faces, reference)
}

func (d *vulkanDriver) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cmd, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *vulkanDriver) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *vulkanDriver) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
