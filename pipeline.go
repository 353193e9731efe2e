package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

type AssemblyState struct {
	Topology      vk.PrimitiveTopology
	RestartEnable bool
}

type RasterState struct {
	DepthClampEnable        bool
	RasterizerDiscardEnable bool
	PolygonMode             vk.PolygonMode
	CullMode                vk.CullModeFlags
	FrontFace               vk.FrontFace
	DepthBiasEnable         bool
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32
}

type StencilOpState struct {
	FailOp      vk.StencilOp
	PassOp      vk.StencilOp
	DepthFailOp vk.StencilOp
	CompareOp   vk.CompareOp
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

func (s StencilOpState) native() vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      s.FailOp,
		PassOp:      s.PassOp,
		DepthFailOp: s.DepthFailOp,
		CompareOp:   s.CompareOp,
		CompareMask: s.CompareMask,
		WriteMask:   s.WriteMask,
		Reference:   s.Reference,
	}
}

type DepthStencilState struct {
	DepthTestEnable       bool
	DepthWriteEnable      bool
	DepthCompareOp        vk.CompareOp
	DepthBoundsTestEnable bool
	StencilTestEnable     bool
	Front                 StencilOpState
	Back                  StencilOpState
	MinDepthBounds        float32
	MaxDepthBounds        float32
}

type ColorBlendAttachment struct {
	BlendEnable         bool
	SrcColorBlendFactor vk.BlendFactor
	DstColorBlendFactor vk.BlendFactor
	ColorBlendOp        vk.BlendOp
	SrcAlphaBlendFactor vk.BlendFactor
	DstAlphaBlendFactor vk.BlendFactor
	AlphaBlendOp        vk.BlendOp
	ColorWriteMask      vk.ColorComponentFlags
}

type ColorBlendState struct {
	LogicOpEnable  bool
	LogicOp        vk.LogicOp
	Attachments    []ColorBlendAttachment
	BlendConstants [4]float32
}

// PipelineInfo is the fixed function state of a graphics pipeline. A nil
// RenderPass targets the swapchain render pass.
type PipelineInfo struct {
	Shader        ShaderHandle
	RenderPass    *RenderPassHandle
	Assembly      AssemblyState
	Raster        RasterState
	DepthStencil  DepthStencilState
	ColorBlend    ColorBlendState
	DynamicStates []vk.DynamicState
}

// DefaultPipelineInfo draws filled, back face culled triangle lists with depth
// testing into one opaque color attachment. Viewport and scissor are dynamic.
func DefaultPipelineInfo(s ShaderHandle) PipelineInfo {
	return PipelineInfo{
		Shader: s,
		Assembly: AssemblyState{
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		Raster: RasterState{
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		DepthStencil: DepthStencilState{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompareOp:   vk.CompareOpLess,
			MinDepthBounds:   0.0,
			MaxDepthBounds:   1.0,
		},
		ColorBlend: ColorBlendState{
			Attachments: []ColorBlendAttachment{{
				ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			}},
		},
		DynamicStates: []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
	}
}

type pipeline struct {
	info   PipelineInfo
	native vk.Pipeline
	layout vk.PipelineLayout
}

func (c *Controller) CreatePipeline(info PipelineInfo) (PipelineHandle, error) {
	s := &c.shaders[info.Shader]
	extent := c.ctx.SwapchainExtent()

	vertexInput := s.vertexInputState()

	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               info.Assembly.Topology,
		PrimitiveRestartEnable: boolToVk(info.Assembly.RestartEnable),
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        0,
			Y:        0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		}},
	}

	r := info.Raster
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        boolToVk(r.DepthClampEnable),
		RasterizerDiscardEnable: boolToVk(r.RasterizerDiscardEnable),
		PolygonMode:             r.PolygonMode,
		CullMode:                r.CullMode,
		FrontFace:               r.FrontFace,
		DepthBiasEnable:         boolToVk(r.DepthBiasEnable),
		DepthBiasConstantFactor: r.DepthBiasConstantFactor,
		DepthBiasClamp:          r.DepthBiasClamp,
		DepthBiasSlopeFactor:    r.DepthBiasSlopeFactor,
		LineWidth:               r.LineWidth,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
	}

	ds := info.DepthStencil
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       boolToVk(ds.DepthTestEnable),
		DepthWriteEnable:      boolToVk(ds.DepthWriteEnable),
		DepthCompareOp:        ds.DepthCompareOp,
		DepthBoundsTestEnable: boolToVk(ds.DepthBoundsTestEnable),
		StencilTestEnable:     boolToVk(ds.StencilTestEnable),
		Front:                 ds.Front.native(),
		Back:                  ds.Back.native(),
		MinDepthBounds:        ds.MinDepthBounds,
		MaxDepthBounds:        ds.MaxDepthBounds,
	}

	attachments := make([]vk.PipelineColorBlendAttachmentState, len(info.ColorBlend.Attachments))
	for i, a := range info.ColorBlend.Attachments {
		attachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         boolToVk(a.BlendEnable),
			SrcColorBlendFactor: a.SrcColorBlendFactor,
			DstColorBlendFactor: a.DstColorBlendFactor,
			ColorBlendOp:        a.ColorBlendOp,
			SrcAlphaBlendFactor: a.SrcAlphaBlendFactor,
			DstAlphaBlendFactor: a.DstAlphaBlendFactor,
			AlphaBlendOp:        a.AlphaBlendOp,
			ColorWriteMask:      a.ColorWriteMask,
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   boolToVk(info.ColorBlend.LogicOpEnable),
		LogicOp:         info.ColorBlend.LogicOp,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		BlendConstants:  info.ColorBlend.BlendConstants,
	}

	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(info.DynamicStates)),
		PDynamicStates:    info.DynamicStates,
	}

	renderPass := c.ctx.SwapchainRenderPass()
	if info.RenderPass != nil {
		renderPass = c.renderPasses[*info.RenderPass].native
	}

	stages := s.stageCreateInfos()
	native, err := c.driver.CreateGraphicsPipeline(&vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewportState,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              s.layout,
		RenderPass:          renderPass,
		Subpass:             0,
	})
	if err != nil {
		return 0, errors.Wrap(err, "create pipeline")
	}

	c.pipelines = append(c.pipelines, pipeline{info: info, native: native, layout: s.layout})
	h := PipelineHandle(len(c.pipelines) - 1)
	c.log.Debug("created pipeline", slog.Int("handle", int(h)), slog.Int("shader", int(info.Shader)))
	return h, nil
}
