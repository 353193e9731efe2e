package wgslstage

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/naga/ir"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"

	"github.com/koala-engine/vkgc"
)

func stageBit(s ir.ShaderStage) vk.ShaderStageFlagBits {
	switch s {
	case ir.StageVertex:
		return vk.ShaderStageVertexBit
	case ir.StageFragment:
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageComputeBit
}

func reflect(m *ir.Module, ep *ir.EntryPoint) (vkgc.StageReflection, error) {
	refl := vkgc.StageReflection{
		EntryPoint: ep.Name,
		Stage:      stageBit(ep.Stage),
	}

	if ep.Stage == ir.StageVertex {
		inputs, err := vertexInputs(m, &m.Functions[ep.Function])
		if err != nil {
			return refl, err
		}
		refl.Inputs = inputs
	}

	for _, h := range reachableGlobals(m, ep.Function) {
		g := &m.GlobalVariables[h]
		switch g.Space {
		case ir.SpacePushConstant:
			refl.PushConstants = append(refl.PushConstants, vkgc.PushConstantBlock{
				Name: g.Name,
				Size: typeSize(m, g.Type),
			})
		case ir.SpaceUniform, ir.SpaceStorage, ir.SpaceHandle:
			if g.Binding == nil {
				continue
			}
			typ, count := descriptorType(m, g)
			refl.Bindings = append(refl.Bindings, vkgc.DescriptorBinding{
				Name:    g.Name,
				Set:     g.Binding.Group,
				Binding: g.Binding.Binding,
				Type:    typ,
				Count:   count,
			})
		}
	}
	return refl, nil
}

// vertexInputs collects location bound arguments, looking one level into
// struct arguments.
func vertexInputs(m *ir.Module, fn *ir.Function) ([]vkgc.InputVariable, error) {
	var inputs []vkgc.InputVariable
	add := func(name string, binding *ir.Binding, th ir.TypeHandle) error {
		if binding == nil {
			return nil
		}
		loc, ok := (*binding).(ir.LocationBinding)
		if !ok {
			return nil
		}
		format, ok := vertexFormat(m.Types[th].Inner)
		if !ok {
			return errors.Wrapf(ErrInputType, "%s at location %d", name, loc.Location)
		}
		inputs = append(inputs, vkgc.InputVariable{Name: name, Location: loc.Location, Format: format})
		return nil
	}

	for _, arg := range fn.Arguments {
		if st, ok := m.Types[arg.Type].Inner.(ir.StructType); ok && arg.Binding == nil {
			for _, member := range st.Members {
				if err := add(member.Name, member.Binding, member.Type); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := add(arg.Name, arg.Binding, arg.Type); err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

var scalarFormats = map[ir.ScalarKind][4]vk.Format{
	ir.ScalarFloat: {vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat},
	ir.ScalarSint:  {vk.FormatR32Sint, vk.FormatR32g32Sint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32a32Sint},
	ir.ScalarUint:  {vk.FormatR32Uint, vk.FormatR32g32Uint, vk.FormatR32g32b32Uint, vk.FormatR32g32b32a32Uint},
}

// vertexFormat maps 32 bit scalars and vectors to their attribute format.
func vertexFormat(t ir.TypeInner) (vk.Format, bool) {
	var (
		scalar     ir.ScalarType
		components int
	)
	switch v := t.(type) {
	case ir.ScalarType:
		scalar, components = v, 1
	case ir.VectorType:
		scalar, components = v.Scalar, int(v.Size)
	default:
		return vk.FormatUndefined, false
	}
	formats, ok := scalarFormats[scalar.Kind]
	if !ok || scalar.Width != 4 {
		return vk.FormatUndefined, false
	}
	return formats[components-1], true
}

func descriptorType(m *ir.Module, g *ir.GlobalVariable) (vk.DescriptorType, uint32) {
	switch g.Space {
	case ir.SpaceUniform:
		return vk.DescriptorTypeUniformBuffer, 1
	case ir.SpaceStorage:
		return vk.DescriptorTypeStorageBuffer, 1
	}

	count := uint32(1)
	inner := m.Types[g.Type].Inner
	if arr, ok := inner.(ir.ArrayType); ok {
		if arr.Size.Constant != nil {
			count = *arr.Size.Constant
		}
		inner = m.Types[arr.Base].Inner
	}
	switch v := inner.(type) {
	case ir.SamplerType:
		return vk.DescriptorTypeSampler, count
	case ir.ImageType:
		if v.Class == ir.ImageClassStorage {
			return vk.DescriptorTypeStorageImage, count
		}
	}
	return vk.DescriptorTypeSampledImage, count
}

// typeSize is the byte size of a host shareable type.
func typeSize(m *ir.Module, h ir.TypeHandle) uint32 {
	switch v := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		return uint32(v.Width)
	case ir.VectorType:
		return uint32(v.Size) * uint32(v.Scalar.Width)
	case ir.MatrixType:
		rows := uint32(v.Rows)
		if rows == 3 {
			rows = 4
		}
		return uint32(v.Columns) * rows * uint32(v.Scalar.Width)
	case ir.ArrayType:
		if v.Size.Constant == nil {
			return 0
		}
		stride := v.Stride
		if stride == 0 {
			stride = typeSize(m, v.Base)
		}
		return *v.Size.Constant * stride
	case ir.StructType:
		return v.Span
	case ir.AtomicType:
		return uint32(v.Scalar.Width)
	}
	return 0
}

// reachableGlobals lists the globals fn and every function it calls refer
// to, in handle order.
func reachableGlobals(m *ir.Module, fn ir.FunctionHandle) []ir.GlobalVariableHandle {
	seenFn := map[ir.FunctionHandle]bool{}
	seenGlobal := map[ir.GlobalVariableHandle]bool{}

	var visit func(h ir.FunctionHandle)
	visit = func(h ir.FunctionHandle) {
		if seenFn[h] || int(h) >= len(m.Functions) {
			return
		}
		seenFn[h] = true
		f := &m.Functions[h]
		for _, e := range f.Expressions {
			switch k := e.Kind.(type) {
			case ir.ExprGlobalVariable:
				seenGlobal[k.Variable] = true
			case ir.ExprCallResult:
				visit(k.Function)
			}
		}
		for _, callee := range calledFunctions(f.Body) {
			visit(callee)
		}
	}
	visit(fn)

	globals := make([]ir.GlobalVariableHandle, 0, len(seenGlobal))
	for h := range seenGlobal {
		globals = append(globals, h)
	}
	slices.Sort(globals)
	return globals
}

func calledFunctions(block ir.Block) []ir.FunctionHandle {
	var out []ir.FunctionHandle
	for _, stmt := range block {
		switch s := stmt.Kind.(type) {
		case ir.StmtCall:
			out = append(out, s.Function)
		case ir.StmtBlock:
			out = append(out, calledFunctions(s.Block)...)
		case ir.StmtIf:
			out = append(out, calledFunctions(s.Accept)...)
			out = append(out, calledFunctions(s.Reject)...)
		case ir.StmtSwitch:
			for _, c := range s.Cases {
				out = append(out, calledFunctions(c.Body)...)
			}
		case ir.StmtLoop:
			out = append(out, calledFunctions(s.Body)...)
			out = append(out, calledFunctions(s.Continuing)...)
		}
	}
	return out
}
