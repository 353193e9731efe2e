package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// Draw commands are recorded into the current frame's draw buffer and are
// only valid between New (or EndFrame) and the next EndFrame.

// DrawBegin starts fb's render pass. Attachments are first moved to the
// layout the pass expects and are then considered to be in its final layout.
func (c *Controller) DrawBegin(h FramebufferHandle, clears []vk.ClearValue) error {
	fb := &c.framebuffers[h]
	pass := &c.renderPasses[fb.renderPass]

	for i, ih := range fb.attachments {
		img := &c.images[ih]
		if err := c.imageShouldHaveLayout(img, pass.attachments[i].initialLayout); err != nil {
			return err
		}
		img.currentLayout = pass.attachments[i].finalLayout
	}
	c.inPass = true

	c.driver.CmdBeginRenderPass(c.drawBuffer(), &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.native,
		Framebuffer: fb.native,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: fb.extent,
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	})
	return nil
}

func (c *Controller) DrawEnd() {
	c.driver.CmdEndRenderPass(c.drawBuffer())
	c.inPass = false
}

// DrawBeginForScreen starts the swapchain render pass, clearing to color.
func (c *Controller) DrawBeginForScreen(color lin.Vec4) {
	var clear vk.ClearValue
	clear.SetColor(color[:])

	c.driver.CmdBeginRenderPass(c.drawBuffer(), &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  c.ctx.SwapchainRenderPass(),
		Framebuffer: c.ctx.SwapchainFramebuffer(),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: c.ctx.SwapchainExtent(),
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clear},
	})
	c.inPass = true
}

func (c *Controller) DrawEndForScreen() {
	c.driver.CmdEndRenderPass(c.drawBuffer())
	c.inPass = false
}

func (c *Controller) DrawSetViewport(x, y, width, height, minDepth, maxDepth float32) {
	c.driver.CmdSetViewport(c.drawBuffer(), vk.Viewport{
		X:        x,
		Y:        y,
		Width:    width,
		Height:   height,
		MinDepth: minDepth,
		MaxDepth: maxDepth,
	})
}

func (c *Controller) DrawSetScissor(x, y int32, width, height uint32) {
	c.driver.CmdSetScissor(c.drawBuffer(), vk.Rect2D{
		Offset: vk.Offset2D{X: x, Y: y},
		Extent: vk.Extent2D{Width: width, Height: height},
	})
}

func (c *Controller) DrawSetLineWidth(width float32) {
	c.driver.CmdSetLineWidth(c.drawBuffer(), width)
}

func (c *Controller) DrawSetStencilReference(faces vk.StencilFaceFlags, reference uint32) {
	c.driver.CmdSetStencilReference(c.drawBuffer(), faces, reference)
}

func (c *Controller) DrawPushConstants(s ShaderHandle, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	c.driver.CmdPushConstants(c.drawBuffer(), c.shaders[s].layout, stages, offset, data)
}

func (c *Controller) DrawBindPipeline(p PipelineHandle) {
	c.driver.CmdBindPipeline(c.drawBuffer(), c.pipelines[p].native)
}

func (c *Controller) DrawBindVertexBuffer(b BufferHandle) {
	c.driver.CmdBindVertexBuffer(c.drawBuffer(), 0, c.buffers[b].native, 0)
}

// DrawBindIndexBuffer binds b with the index type it was created with.
func (c *Controller) DrawBindIndexBuffer(b BufferHandle) {
	buf := &c.buffers[b]
	c.driver.CmdBindIndexBuffer(c.drawBuffer(), buf.native, 0, buf.indexType)
}

// DrawBindUniformSets binds sets starting at firstSet. Images of the sets that
// were rendered to since the set was created are moved back to a readable layout.
// Barriers are not allowed inside a render pass, so sets whose images may need
// that move must be bound before DrawBegin; inside a pass it is an error.
func (c *Controller) DrawBindUniformSets(p PipelineHandle, firstSet uint32, sets ...UniformSetHandle) error {
	natives := make([]vk.DescriptorSet, 0, len(sets))
	for _, h := range sets {
		us := &c.uniformSets[h]
		for _, ih := range us.images {
			img := &c.images[ih]
			if img.info.Usage.Has(ImageUsageDepthStencilReadOnly) {
				continue
			}
			if c.inPass && img.currentLayout != vk.ImageLayoutShaderReadOnlyOptimal {
				return errors.Wrapf(ErrTransitionInRenderPass, "uniform set %d image %d is in layout %d", h, ih, img.currentLayout)
			}
			if err := c.imageShouldHaveLayout(img, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
				return err
			}
		}
		natives = append(natives, us.native)
	}
	c.driver.CmdBindDescriptorSets(c.drawBuffer(), c.pipelines[p].layout, firstSet, natives)
	return nil
}

func (c *Controller) DrawDrawIndexed(indexCount, firstIndex uint32) {
	c.driver.CmdDrawIndexed(c.drawBuffer(), indexCount, 1, firstIndex, 0, 0)
}

func (c *Controller) DrawDraw(vertexCount, firstVertex uint32) {
	c.driver.CmdDraw(c.drawBuffer(), vertexCount, 1, firstVertex, 0)
}

// ScreenResolution is the current swapchain extent.
func (c *Controller) ScreenResolution() Resolution {
	extent := c.ctx.SwapchainExtent()
	return Resolution{Width: extent.Width, Height: extent.Height}
}
