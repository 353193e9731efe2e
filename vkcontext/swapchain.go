package vkcontext

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"
)

func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, preferred := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		if slices.Contains(modes, preferred) {
			return preferred
		}
	}
	return vk.PresentModeFifo
}

// chooseSurfaceFormat expects formats to be dereferenced.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}, nil
	}
	for _, preferred := range []vk.Format{vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm} {
		for _, f := range formats {
			if f.Format == preferred {
				return f, nil
			}
		}
	}
	return formats[0], nil
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chooseExtent uses the surface extent when the surface dictates one, and
// otherwise clamps the framebuffer size into the supported range.
func chooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount picks desired images, or one more than the minimum when
// desired is 0. A MaxImageCount of 0 means no upper limit.
func chooseImageCount(caps vk.SurfaceCapabilities, desired int) uint32 {
	count := caps.MinImageCount + 1
	if desired > 0 {
		count = uint32(desired)
	}
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, bit := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(bit) != 0 {
			return bit
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func chooseTransform(caps vk.SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return caps.CurrentTransform
}

func surfaceCapabilities(gpu vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)); err != nil {
		return caps, errors.Wrap(err, "query surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func surfaceFormats(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "query surface formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, formats)); err != nil {
		return nil, errors.Wrap(err, "query surface formats")
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func surfacePresentModes(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "query present modes")
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, modes)); err != nil {
		return nil, errors.Wrap(err, "query present modes")
	}
	return modes, nil
}

// createScreenRenderPass is the single color attachment pass used to draw
// into swapchain images.
func createScreenRenderPass(d vk.Device, format vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}}
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}}
	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d, &createInfo, nil, &pass)); err != nil {
		return nil, errors.Wrap(err, "create screen render pass")
	}
	return pass, nil
}

type swapchain struct {
	native       vk.Swapchain
	extent       vk.Extent2D
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer
}

type swapchainParams struct {
	surface     vk.Surface
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	renderPass  vk.RenderPass
	caps        vk.SurfaceCapabilities
	extent      vk.Extent2D
	imageCount  uint32
	old         vk.Swapchain
}

func createSwapchain(d *device, p swapchainParams) (*swapchain, error) {
	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          p.surface,
		MinImageCount:    p.imageCount,
		ImageFormat:      p.format.Format,
		ImageColorSpace:  p.format.ColorSpace,
		ImageExtent:      p.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     chooseTransform(p.caps),
		CompositeAlpha:   chooseCompositeAlpha(p.caps.SupportedCompositeAlpha),
		PresentMode:      p.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     p.old,
	}
	if d.graphicsIndex != d.presentIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{d.graphicsIndex, d.presentIndex}
	}

	s := &swapchain{extent: p.extent}
	if err := vk.Error(vk.CreateSwapchain(d.native, &createInfo, nil, &s.native)); err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	var count uint32
	if err := vk.Error(vk.GetSwapchainImages(d.native, s.native, &count, nil)); err != nil {
		s.destroy(d.native)
		return nil, errors.Wrap(err, "get swapchain images")
	}
	s.images = make([]vk.Image, count)
	if err := vk.Error(vk.GetSwapchainImages(d.native, s.native, &count, s.images)); err != nil {
		s.destroy(d.native)
		return nil, errors.Wrap(err, "get swapchain images")
	}

	for _, img := range s.images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   p.format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(d.native, &viewInfo, nil, &view)); err != nil {
			s.destroy(d.native)
			return nil, errors.Wrap(err, "create swapchain image view")
		}
		s.views = append(s.views, view)

		fbInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      p.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           p.extent.Width,
			Height:          p.extent.Height,
			Layers:          1,
		}
		var fb vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(d.native, &fbInfo, nil, &fb)); err != nil {
			s.destroy(d.native)
			return nil, errors.Wrap(err, "create swapchain framebuffer")
		}
		s.framebuffers = append(s.framebuffers, fb)
	}
	return s, nil
}

// destroy releases framebuffers and views. The images belong to the
// swapchain itself.
func (s *swapchain) destroy(d vk.Device) {
	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(d, fb, nil)
	}
	for _, view := range s.views {
		vk.DestroyImageView(d, view, nil)
	}
	s.framebuffers, s.views, s.images = nil, nil, nil
	if s.native != vk.NullSwapchain {
		vk.DestroySwapchain(d, s.native, nil)
		s.native = vk.NullSwapchain
	}
}
