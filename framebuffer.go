package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

type framebuffer struct {
	renderPass  RenderPassHandle
	native      vk.Framebuffer
	attachments []ImageHandle
	views       []vk.ImageView
	extent      vk.Extent2D
}

func (c *Controller) destroyFramebuffer(fb *framebuffer) {
	for _, view := range fb.views {
		c.driver.DestroyImageView(view)
	}
	if fb.native != nil {
		c.driver.DestroyFramebuffer(fb.native)
	}
}

// CreateFramebuffer binds images to the attachments of pass, in order. The
// extent is taken from the first image.
func (c *Controller) CreateFramebuffer(pass RenderPassHandle, images []ImageHandle) (FramebufferHandle, error) {
	if len(images) == 0 {
		return 0, errors.New("create framebuffer: no attachments")
	}
	first := &c.images[images[0]]
	fb := framebuffer{
		renderPass:  pass,
		attachments: append([]ImageHandle(nil), images...),
		extent:      vk.Extent2D{Width: first.info.Width, Height: first.info.Height},
	}

	for _, h := range images {
		img := &c.images[h]
		view, err := c.createImageView(img, img.info.Usage)
		if err != nil {
			c.destroyFramebuffer(&fb)
			return 0, errors.Wrapf(err, "create framebuffer view of image %d", h)
		}
		fb.views = append(fb.views, view)
	}

	native, err := c.driver.CreateFramebuffer(&vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      c.renderPasses[pass].native,
		AttachmentCount: uint32(len(fb.views)),
		PAttachments:    fb.views,
		Width:           fb.extent.Width,
		Height:          fb.extent.Height,
		Layers:          1,
	})
	if err != nil {
		c.destroyFramebuffer(&fb)
		return 0, errors.Wrap(err, "create framebuffer")
	}
	fb.native = native

	c.framebuffers = append(c.framebuffers, fb)
	h := FramebufferHandle(len(c.framebuffers) - 1)
	c.log.Debug("created framebuffer",
		slog.Int("handle", int(h)),
		slog.Int("render_pass", int(pass)),
		slog.Int("attachments", len(images)))
	return h, nil
}
