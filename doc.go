/*
Package vkgc is a GPU resource controller on top of Vulkan. It owns every
buffer, image, sampler, shader, pipeline, render pass, framebuffer and
uniform set an application creates, and records all commands of a frame
loop into a ring of per frame command buffers.

Resources are addressed by handles. A handle is the index of the resource
in a table that only ever grows, so it stays valid until the controller is
destroyed. Nothing is released individually, Destroy releases everything
once the device is idle.

Frames

The ring holds one slot more than the swapchain has images. Each slot owns a
command pool, a setup and a draw command buffer, and the staging resources
uploads of that frame used. EndFrame submits the slot through the Context,
moves to the next slot and releases what that slot staged a full ring ago.

	ctl, err := vkgc.New(ctx)
	...
	for running {
		ctl.DrawBeginForScreen(lin.Vec4{0, 0, 0, 1})
		ctl.DrawBindPipeline(pipeline)
		ctl.DrawBindVertexBuffer(vertices)
		ctl.DrawBindIndexBuffer(indices)
		ctl.DrawDrawIndexed(ctl.IndexCount(indices), 0)
		ctl.DrawEndForScreen()
		if err := ctl.EndFrame(); err != nil {
			...
		}
	}
	ctl.Destroy()

Layouts

Every image remembers the layout it was last moved into. Operations that need
a specific layout record a barrier only when the image is somewhere else.
After a render pass the attachments are assumed to be in the final layout the
pass declares.

Native calls

All device calls go through a Driver. NewVulkanDriver is used unless another
one is given with WithDriver.

The controller is not safe for concurrent use.
*/
package vkgc
