package vkgc

// Handles index the controller's resource tables. A handle stays valid until
// the controller is destroyed and is never reused.
type (
	BufferHandle      uint32
	ImageHandle       uint32
	SamplerHandle     uint32
	ShaderHandle      uint32
	PipelineHandle    uint32
	RenderPassHandle  uint32
	FramebufferHandle uint32
	UniformSetHandle  uint32
)

// Resolution is the size of the screen surface in pixels.
type Resolution struct {
	Width  uint32
	Height uint32
}
