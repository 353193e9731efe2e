package vkgc

import vk "github.com/vulkan-go/vulkan"

// Context owns the device, the swapchain and presentation. The controller
// records into command buffers and hands them to SwapBuffers once per frame.
type Context interface {
	Device() vk.Device
	GraphicsQueueIndex() uint32
	PhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties
	SwapchainImageCount() int
	SwapchainExtent() vk.Extent2D
	SwapchainRenderPass() vk.RenderPass
	SwapchainFramebuffer() vk.Framebuffer

	// SwapBuffers submits both command buffers in order and presents the frame.
	SwapBuffers(setup, draw vk.CommandBuffer) error
	// Sync blocks until the device is idle.
	Sync() error
}
