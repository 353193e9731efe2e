package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// RenderPassAttachment describes one attachment of a single subpass render
// pass by how the image is used before, during and after the pass.
type RenderPassAttachment struct {
	Format               vk.Format
	PreviousUsage        ImageUsage
	CurrentUsage         ImageUsage
	NextUsage            ImageUsage
	InitialAction        vk.AttachmentLoadOp
	FinalAction          vk.AttachmentStoreOp
	StencilInitialAction vk.AttachmentLoadOp
	StencilFinalAction   vk.AttachmentStoreOp
}

type renderPassAttachment struct {
	info          RenderPassAttachment
	initialLayout vk.ImageLayout
	finalLayout   vk.ImageLayout
}

type renderPass struct {
	attachments []renderPassAttachment
	native      vk.RenderPass
}

// CreateRenderPass creates a render pass with one subpass. Attachments with a
// depth format become the depth/stencil attachment, there can be at most one.
func (c *Controller) CreateRenderPass(attachments []RenderPassAttachment) (RenderPassHandle, error) {
	var (
		descriptions []vk.AttachmentDescription
		colors       []vk.AttachmentReference
		depths       []vk.AttachmentReference
		pass         renderPass
	)

	in := vk.SubpassDependency{SrcSubpass: vk.SubpassExternal, DstSubpass: 0}
	out := vk.SubpassDependency{SrcSubpass: 0, DstSubpass: vk.SubpassExternal}

	for i, a := range attachments {
		prev := usageToLayoutStageAccess(a.PreviousUsage)
		curr := usageToLayoutStageAccess(a.CurrentUsage)
		next := usageToLayoutStageAccess(a.NextUsage)

		in.SrcStageMask |= prev.stages
		in.SrcAccessMask |= prev.access
		in.DstStageMask |= curr.stages
		in.DstAccessMask |= curr.access

		out.SrcStageMask |= curr.stages
		out.SrcAccessMask |= curr.access
		out.DstStageMask |= next.stages
		out.DstAccessMask |= next.access

		// An attachment nobody reads afterwards stays in the layout the pass used.
		finalLayout := next.layout
		if finalLayout == vk.ImageLayoutUndefined {
			finalLayout = curr.layout
		}

		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         a.InitialAction,
			StoreOp:        a.FinalAction,
			StencilLoadOp:  a.StencilInitialAction,
			StencilStoreOp: a.StencilFinalAction,
			InitialLayout:  prev.layout,
			FinalLayout:    finalLayout,
		})

		ref := vk.AttachmentReference{Attachment: uint32(i), Layout: curr.layout}
		if formatHasDepth(a.Format) {
			depths = append(depths, ref)
		} else {
			colors = append(colors, ref)
		}

		pass.attachments = append(pass.attachments, renderPassAttachment{
			info:          a,
			initialLayout: prev.layout,
			finalLayout:   finalLayout,
		})
	}

	if len(depths) > 1 {
		return 0, errors.Wrapf(ErrTooManyDepthAttachments, "got %d", len(depths))
	}

	if in.SrcStageMask == 0 {
		in.SrcStageMask = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if out.DstStageMask == 0 {
		out.DstStageMask = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colors)),
		PColorAttachments:    colors,
	}
	if len(depths) == 1 {
		subpass.PDepthStencilAttachment = &depths[0]
	}

	native, err := c.driver.CreateRenderPass(&vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 2,
		PDependencies:   []vk.SubpassDependency{in, out},
	})
	if err != nil {
		return 0, errors.Wrap(err, "create render pass")
	}
	pass.native = native

	c.renderPasses = append(c.renderPasses, pass)
	h := RenderPassHandle(len(c.renderPasses) - 1)
	c.log.Debug("created render pass",
		slog.Int("handle", int(h)),
		slog.Int("color", len(colors)),
		slog.Int("depth", len(depths)))
	return h, nil
}
