package vkgc

import (
	"cmp"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// ShaderStage is one compiled stage: SPIR-V code and what was reflected from it.
type ShaderStage struct {
	Code       []byte
	Reflection StageReflection
}

type StageReflection struct {
	EntryPoint    string
	Stage         vk.ShaderStageFlagBits
	Inputs        []InputVariable
	Bindings      []DescriptorBinding
	PushConstants []PushConstantBlock
}

// InputVariable is a vertex stage input.
type InputVariable struct {
	Name     string
	Location uint32
	Format   vk.Format
}

type DescriptorBinding struct {
	Name    string
	Set     uint32
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
}

type PushConstantBlock struct {
	Name   string
	Offset uint32
	Size   uint32
}

type shaderModule struct {
	module vk.ShaderModule
	entry  string
	stage  vk.ShaderStageFlagBits
}

type shaderSet struct {
	set      uint32
	bindings []vk.DescriptorSetLayoutBinding
}

func (s *shaderSet) findBinding(binding uint32) *vk.DescriptorSetLayoutBinding {
	for i := range s.bindings {
		if s.bindings[i].Binding == binding {
			return &s.bindings[i]
		}
	}
	return nil
}

type shader struct {
	stages        []shaderModule
	attributes    []vk.VertexInputAttributeDescription
	stride        uint32
	sets          []shaderSet
	setLayouts    []vk.DescriptorSetLayout
	pushConstants []vk.PushConstantRange
	layout        vk.PipelineLayout
}

// findSet returns the position of set in the sorted set list, or -1.
func (s *shader) findSet(set uint32) int {
	for i := range s.sets {
		if s.sets[i].set == set {
			return i
		}
	}
	return -1
}

func (s *shader) stageCreateInfos() []vk.PipelineShaderStageCreateInfo {
	infos := make([]vk.PipelineShaderStageCreateInfo, len(s.stages))
	for i, st := range s.stages {
		infos[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  st.stage,
			Module: st.module,
			PName:  safeString(st.entry),
		}
	}
	return infos
}

func (s *shader) vertexInputState() vk.PipelineVertexInputStateCreateInfo {
	state := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if len(s.attributes) > 0 {
		state.VertexBindingDescriptionCount = 1
		state.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    s.stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		state.VertexAttributeDescriptionCount = uint32(len(s.attributes))
		state.PVertexAttributeDescriptions = s.attributes
	}
	return state
}

func (c *Controller) destroyShader(s *shader) {
	for _, layout := range s.setLayouts {
		c.driver.DestroyDescriptorSetLayout(layout)
	}
	for _, st := range s.stages {
		c.driver.DestroyShaderModule(st.module)
	}
	if s.layout != nil {
		c.driver.DestroyPipelineLayout(s.layout)
	}
}

// reflectVertexInputs lays inputs out back to back in location order in binding 0.
func reflectVertexInputs(s *shader, inputs []InputVariable) error {
	sorted := slices.Clone(inputs)
	slices.SortFunc(sorted, func(a, b InputVariable) int {
		return cmp.Compare(a.Location, b.Location)
	})

	var offset uint32
	s.attributes = make([]vk.VertexInputAttributeDescription, 0, len(sorted))
	for _, in := range sorted {
		size, err := FormatSize(in.Format)
		if err != nil {
			return errors.Wrapf(err, "vertex input %q at location %d", in.Name, in.Location)
		}
		s.attributes = append(s.attributes, vk.VertexInputAttributeDescription{
			Location: in.Location,
			Binding:  0,
			Format:   in.Format,
			Offset:   offset,
		})
		offset += size
	}
	s.stride = offset
	return nil
}

// mergeBindings folds the bindings of one stage into the shader's sets.
func mergeBindings(s *shader, stage vk.ShaderStageFlagBits, bindings []DescriptorBinding) error {
	for _, b := range bindings {
		idx := s.findSet(b.Set)
		if idx < 0 {
			s.sets = append(s.sets, shaderSet{set: b.Set})
			idx = len(s.sets) - 1
		}
		set := &s.sets[idx]

		existing := set.findBinding(b.Binding)
		if existing == nil {
			set.bindings = append(set.bindings, vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding,
				DescriptorType:  b.Type,
				DescriptorCount: b.Count,
				StageFlags:      vk.ShaderStageFlags(stage),
			})
			continue
		}
		if existing.DescriptorType != b.Type {
			return errors.Wrapf(ErrBindingRedefinition, "set %d binding %d: type %d, was %d",
				b.Set, b.Binding, b.Type, existing.DescriptorType)
		}
		if existing.DescriptorCount != b.Count {
			return errors.Wrapf(ErrBindingRedefinition, "set %d binding %d: count %d, was %d",
				b.Set, b.Binding, b.Count, existing.DescriptorCount)
		}
		existing.StageFlags |= vk.ShaderStageFlags(stage)
	}
	return nil
}

// fillSetGaps turns sets sorted by number into a list indexed by set number,
// with empty sets for the numbers no stage uses.
func fillSetGaps(sets []shaderSet) []shaderSet {
	if len(sets) == 0 {
		return sets
	}
	dense := make([]shaderSet, sets[len(sets)-1].set+1)
	for i := range dense {
		dense[i].set = uint32(i)
	}
	for _, set := range sets {
		dense[set.set] = set
	}
	return dense
}

// CreateShader builds the modules of every stage and one pipeline layout from
// their merged bindings. Set numbers index the layout directly, unused numbers
// below the highest one get empty set layouts. Only the first push constant
// block of a stage is used.
func (c *Controller) CreateShader(stages []ShaderStage) (ShaderHandle, error) {
	var s shader
	fail := func(err error) (ShaderHandle, error) {
		c.destroyShader(&s)
		return 0, errors.Wrap(err, "create shader")
	}

	for _, st := range stages {
		r := st.Reflection
		module, err := c.driver.CreateShaderModule(st.Code)
		if err != nil {
			return fail(err)
		}
		s.stages = append(s.stages, shaderModule{module: module, entry: r.EntryPoint, stage: r.Stage})

		if r.Stage == vk.ShaderStageVertexBit {
			if err := reflectVertexInputs(&s, r.Inputs); err != nil {
				return fail(err)
			}
		}
		if err := mergeBindings(&s, r.Stage, r.Bindings); err != nil {
			return fail(err)
		}
		if len(r.PushConstants) > 0 {
			pc := r.PushConstants[0]
			s.pushConstants = append(s.pushConstants, vk.PushConstantRange{
				StageFlags: vk.ShaderStageFlags(r.Stage),
				Offset:     pc.Offset,
				Size:       pc.Size,
			})
		}
	}

	slices.SortFunc(s.sets, func(a, b shaderSet) int {
		return cmp.Compare(a.set, b.set)
	})
	s.sets = fillSetGaps(s.sets)
	for i := range s.sets {
		slices.SortFunc(s.sets[i].bindings, func(a, b vk.DescriptorSetLayoutBinding) int {
			return cmp.Compare(a.Binding, b.Binding)
		})
	}

	for _, set := range s.sets {
		layout, err := c.driver.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(set.bindings)),
			PBindings:    set.bindings,
		})
		if err != nil {
			return fail(errors.Wrapf(err, "set %d", set.set))
		}
		s.setLayouts = append(s.setLayouts, layout)
	}

	layout, err := c.driver.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(s.setLayouts)),
		PSetLayouts:            s.setLayouts,
		PushConstantRangeCount: uint32(len(s.pushConstants)),
		PPushConstantRanges:    s.pushConstants,
	})
	if err != nil {
		return fail(err)
	}
	s.layout = layout

	c.shaders = append(c.shaders, s)
	h := ShaderHandle(len(c.shaders) - 1)
	c.log.Debug("created shader",
		slog.Int("handle", int(h)),
		slog.Int("stages", len(s.stages)),
		slog.Int("sets", len(s.sets)),
		slog.Int("push_constants", len(s.pushConstants)))
	return h, nil
}

// ShaderStageFlags returns the stages that see the given binding, for inspection.
func (c *Controller) ShaderStageFlags(h ShaderHandle, set, binding uint32) (vk.ShaderStageFlags, error) {
	s := &c.shaders[h]
	idx := s.findSet(set)
	if idx < 0 {
		return 0, errors.Wrapf(ErrBindingNotFound, "shader %d has no set %d", h, set)
	}
	b := s.sets[idx].findBinding(binding)
	if b == nil {
		return 0, errors.Wrapf(ErrBindingNotFound, "shader %d set %d binding %d", h, set, binding)
	}
	return b.StageFlags, nil
}
