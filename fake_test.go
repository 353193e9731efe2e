package vkgc

import (
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

var (
	handleMu   sync.Mutex
	nextHandle uintptr = 0x10000
)

// mint returns a unique non-nil native handle of type T. Native handles point
// to incomplete C types, so the address must stay outside the Go heap for
// reflect to accept it.
func mint[T any]() T {
	handleMu.Lock()
	defer handleMu.Unlock()
	nextHandle += 8
	addr := nextHandle
	return *(*T)(unsafe.Pointer(&addr))
}

type barrierCall struct {
	cmd      vk.CommandBuffer
	src, dst vk.PipelineStageFlags
	buffers  []vk.BufferMemoryBarrier
	images   []vk.ImageMemoryBarrier
}

// fakeDriver executes transfers immediately on Go memory and records
// everything else.
type fakeDriver struct {
	memory      map[vk.DeviceMemory][]byte
	bufferSize  map[vk.Buffer]uint64
	bufferMem   map[vk.Buffer]vk.DeviceMemory
	live        map[any]string
	fail        map[string]error
	begun       map[vk.CommandBuffer]int
	ended       map[vk.CommandBuffer]int
	allocations int

	barriers       []barrierCall
	images         []vk.ImageCreateInfo
	views          []vk.ImageViewCreateInfo
	copies         []vk.BufferCopy
	imageCopies    []vk.BufferImageCopy
	blits          []vk.ImageBlit
	pools          []vk.DescriptorPoolCreateInfo
	setLayouts     []vk.DescriptorSetLayoutCreateInfo
	pipelineLayout []vk.PipelineLayoutCreateInfo
	pipelines      []vk.GraphicsPipelineCreateInfo
	renderPasses   []vk.RenderPassCreateInfo
	descriptorSets int
	writes         [][]vk.WriteDescriptorSet
	passBegins     []vk.RenderPassBeginInfo
	calls          []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		memory:     make(map[vk.DeviceMemory][]byte),
		bufferSize: make(map[vk.Buffer]uint64),
		bufferMem:  make(map[vk.Buffer]vk.DeviceMemory),
		live:       make(map[any]string),
		fail:       make(map[string]error),
		begun:      make(map[vk.CommandBuffer]int),
		ended:      make(map[vk.CommandBuffer]int),
	}
}

func (f *fakeDriver) failing(op string) error {
	err := f.fail[op]
	delete(f.fail, op)
	return err
}

func (f *fakeDriver) liveCount(kind string) int {
	n := 0
	for _, k := range f.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (f *fakeDriver) bufferBytes(b vk.Buffer) []byte {
	return f.memory[f.bufferMem[b]]
}

func (f *fakeDriver) imageBarriers() []vk.ImageMemoryBarrier {
	var out []vk.ImageMemoryBarrier
	for _, b := range f.barriers {
		out = append(out, b.images...)
	}
	return out
}

func (f *fakeDriver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	if err := f.failing("CreateCommandPool"); err != nil {
		return nil, err
	}
	p := mint[vk.CommandPool]()
	f.live[p] = "command pool"
	return p, nil
}

func (f *fakeDriver) DestroyCommandPool(pool vk.CommandPool) { delete(f.live, pool) }

func (f *fakeDriver) AllocateCommandBuffer(pool vk.CommandPool, level vk.CommandBufferLevel) (vk.CommandBuffer, error) {
	return mint[vk.CommandBuffer](), nil
}

func (f *fakeDriver) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	f.begun[cmd]++
	return nil
}

func (f *fakeDriver) EndCommandBuffer(cmd vk.CommandBuffer) error {
	f.ended[cmd]++
	return nil
}

func (f *fakeDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	if err := f.failing("CreateBuffer"); err != nil {
		return nil, err
	}
	b := mint[vk.Buffer]()
	f.bufferSize[b] = uint64(info.Size)
	f.live[b] = "buffer"
	return b, nil
}

func (f *fakeDriver) DestroyBuffer(buffer vk.Buffer) { delete(f.live, buffer) }

func (f *fakeDriver) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: vk.DeviceSize(f.bufferSize[buffer]), Alignment: 4, MemoryTypeBits: 0x3}
}

func (f *fakeDriver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	f.bufferMem[buffer] = memory
	return nil
}

func (f *fakeDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	if err := f.failing("CreateImage"); err != nil {
		return nil, err
	}
	f.images = append(f.images, *info)
	img := mint[vk.Image]()
	f.live[img] = "image"
	return img, nil
}

func (f *fakeDriver) DestroyImage(image vk.Image) { delete(f.live, image) }

func (f *fakeDriver) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 256, Alignment: 16, MemoryTypeBits: 0x1}
}

func (f *fakeDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error { return nil }

func (f *fakeDriver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	if err := f.failing("CreateImageView"); err != nil {
		return nil, err
	}
	f.views = append(f.views, *info)
	v := mint[vk.ImageView]()
	f.live[v] = "image view"
	return v, nil
}

func (f *fakeDriver) DestroyImageView(view vk.ImageView) { delete(f.live, view) }

func (f *fakeDriver) AllocateMemory(size uint64, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	if err := f.failing("AllocateMemory"); err != nil {
		return nil, err
	}
	m := mint[vk.DeviceMemory]()
	f.memory[m] = make([]byte, size)
	f.live[m] = "memory"
	f.allocations++
	return m, nil
}

func (f *fakeDriver) FreeMemory(memory vk.DeviceMemory) {
	delete(f.live, memory)
}

func (f *fakeDriver) MapMemory(memory vk.DeviceMemory, offset, size uint64) (unsafe.Pointer, error) {
	data := f.memory[memory]
	return unsafe.Pointer(&data[offset]), nil
}

func (f *fakeDriver) UnmapMemory(memory vk.DeviceMemory) {}

func (f *fakeDriver) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	s := mint[vk.Sampler]()
	f.live[s] = "sampler"
	return s, nil
}

func (f *fakeDriver) DestroySampler(sampler vk.Sampler) { delete(f.live, sampler) }

func (f *fakeDriver) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	if err := f.failing("CreateShaderModule"); err != nil {
		return nil, err
	}
	m := mint[vk.ShaderModule]()
	f.live[m] = "shader module"
	return m, nil
}

func (f *fakeDriver) DestroyShaderModule(module vk.ShaderModule) { delete(f.live, module) }

func (f *fakeDriver) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	f.setLayouts = append(f.setLayouts, *info)
	l := mint[vk.DescriptorSetLayout]()
	f.live[l] = "set layout"
	return l, nil
}

func (f *fakeDriver) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) { delete(f.live, layout) }

func (f *fakeDriver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	if err := f.failing("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	f.pipelineLayout = append(f.pipelineLayout, *info)
	l := mint[vk.PipelineLayout]()
	f.live[l] = "pipeline layout"
	return l, nil
}

func (f *fakeDriver) DestroyPipelineLayout(layout vk.PipelineLayout) { delete(f.live, layout) }

func (f *fakeDriver) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	f.pipelines = append(f.pipelines, *info)
	p := mint[vk.Pipeline]()
	f.live[p] = "pipeline"
	return p, nil
}

func (f *fakeDriver) DestroyPipeline(pipeline vk.Pipeline) { delete(f.live, pipeline) }

func (f *fakeDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	f.renderPasses = append(f.renderPasses, *info)
	p := mint[vk.RenderPass]()
	f.live[p] = "render pass"
	return p, nil
}

func (f *fakeDriver) DestroyRenderPass(pass vk.RenderPass) { delete(f.live, pass) }

func (f *fakeDriver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	fb := mint[vk.Framebuffer]()
	f.live[fb] = "framebuffer"
	return fb, nil
}

func (f *fakeDriver) DestroyFramebuffer(framebuffer vk.Framebuffer) { delete(f.live, framebuffer) }

func (f *fakeDriver) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	f.pools = append(f.pools, *info)
	p := mint[vk.DescriptorPool]()
	f.live[p] = "descriptor pool"
	return p, nil
}

func (f *fakeDriver) DestroyDescriptorPool(pool vk.DescriptorPool) { delete(f.live, pool) }

func (f *fakeDriver) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	f.descriptorSets++
	return mint[vk.DescriptorSet](), nil
}

func (f *fakeDriver) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	f.writes = append(f.writes, writes)
}

func (f *fakeDriver) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	f.barriers = append(f.barriers, barrierCall{cmd: cmd, src: src, dst: dst, buffers: buffers, images: images})
	f.calls = append(f.calls, "barrier")
}

func (f *fakeDriver) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	for _, r := range regions {
		from := f.bufferBytes(src)[r.SrcOffset : r.SrcOffset+r.Size]
		copy(f.bufferBytes(dst)[r.DstOffset:r.DstOffset+r.Size], from)
	}
	f.copies = append(f.copies, regions...)
	f.calls = append(f.calls, "copy buffer")
}

func (f *fakeDriver) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	f.imageCopies = append(f.imageCopies, regions...)
	f.calls = append(f.calls, "copy buffer to image")
}

func (f *fakeDriver) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	f.blits = append(f.blits, regions...)
	f.calls = append(f.calls, "blit")
}

func (f *fakeDriver) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	f.passBegins = append(f.passBegins, *info)
	f.calls = append(f.calls, "begin render pass")
}

func (f *fakeDriver) CmdEndRenderPass(cmd vk.CommandBuffer) {
	f.calls = append(f.calls, "end render pass")
}

func (f *fakeDriver) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	f.calls = append(f.calls, "bind pipeline")
}

func (f *fakeDriver) CmdBindVertexBuffer(cmd vk.CommandBuffer, binding uint32, buffer vk.Buffer, offset uint64) {
	f.calls = append(f.calls, "bind vertex buffer")
}

func (f *fakeDriver) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset uint64, indexType vk.IndexType) {
	f.calls = append(f.calls, "bind index buffer")
}

func (f *fakeDriver) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	f.calls = append(f.calls, "bind descriptor sets")
}

func (f *fakeDriver) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	f.calls = append(f.calls, "set viewport")
}

func (f *fakeDriver) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	f.calls = append(f.calls, "set scissor")
}

func (f *fakeDriver) CmdSetLineWidth(cmd vk.CommandBuffer, width float32) {
	f.calls = append(f.calls, "set line width")
}

func (f *fakeDriver) CmdSetStencilReference(cmd vk.CommandBuffer, faces vk.StencilFaceFlags, reference uint32) {
	f.calls = append(f.calls, "set stencil reference")
}

func (f *fakeDriver) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	f.calls = append(f.calls, "push constants")
}

func (f *fakeDriver) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	f.calls = append(f.calls, "draw")
}

func (f *fakeDriver) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.calls = append(f.calls, "draw indexed")
}

var (
	_ Driver  = (*fakeDriver)(nil)
	_ Context = (*fakeContext)(nil)
)

type fakeContext struct {
	imageCount  int
	extent      vk.Extent2D
	renderPass  vk.RenderPass
	framebuffer vk.Framebuffer
	swaps       [][2]vk.CommandBuffer
	syncs       int
	swapErr     error
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		imageCount:  2,
		extent:      vk.Extent2D{Width: 800, Height: 600},
		renderPass:  mint[vk.RenderPass](),
		framebuffer: mint[vk.Framebuffer](),
	}
}

func (c *fakeContext) Device() vk.Device          { return nil }
func (c *fakeContext) GraphicsQueueIndex() uint32 { return 0 }

func (c *fakeContext) PhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 2
	props.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	props.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	return props
}

func (c *fakeContext) SwapchainImageCount() int             { return c.imageCount }
func (c *fakeContext) SwapchainExtent() vk.Extent2D         { return c.extent }
func (c *fakeContext) SwapchainRenderPass() vk.RenderPass   { return c.renderPass }
func (c *fakeContext) SwapchainFramebuffer() vk.Framebuffer { return c.framebuffer }

func (c *fakeContext) SwapBuffers(setup, draw vk.CommandBuffer) error {
	if c.swapErr != nil {
		return c.swapErr
	}
	c.swaps = append(c.swaps, [2]vk.CommandBuffer{setup, draw})
	return nil
}

func (c *fakeContext) Sync() error {
	c.syncs++
	return nil
}
