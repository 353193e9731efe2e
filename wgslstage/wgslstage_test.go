package wgslstage

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/naga/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/koala-engine/vkgc"
)

const triangleSource = `
struct Uniforms {
    transform: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) color: vec3<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec3<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = uniforms.transform * vec4<f32>(in.position, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.color, 1.0);
}
`

const texturedSource = `
@group(0) @binding(0) var<uniform> tint: vec4<f32>;
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(1) var samp: sampler;
@group(2) @binding(0) var<storage, read> unused_data: array<u32>;

fn shade(uv: vec2<f32>) -> vec4<f32> {
    return textureSample(tex, samp, uv);
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return shade(uv) * tint;
}
`

const pushConstantSource = `
struct Push {
    offset: vec4<f32>,
}

var<push_constant> pc: Push;

@vertex
fn vs_main(@location(0) pos: vec2<f32>, @builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 0.0, 1.0) + pc.offset;
}
`

func requireSPIRV(t *testing.T, code []byte) {
	t.Helper()
	require.GreaterOrEqual(t, len(code), 20)
	assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, code[:4])
}

func TestCompileTriangle(t *testing.T) {
	stages, err := Compile(triangleSource)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	vs, fs := stages[0], stages[1]
	requireSPIRV(t, vs.Code)
	assert.Equal(t, vs.Code, fs.Code)

	assert.Equal(t, "vs_main", vs.Reflection.EntryPoint)
	assert.Equal(t, vk.ShaderStageVertexBit, vs.Reflection.Stage)
	assert.Equal(t, []vkgc.InputVariable{
		{Name: "position", Location: 0, Format: vk.FormatR32g32b32Sfloat},
		{Name: "color", Location: 1, Format: vk.FormatR32g32b32Sfloat},
	}, vs.Reflection.Inputs)
	assert.Equal(t, []vkgc.DescriptorBinding{
		{Name: "uniforms", Set: 0, Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1},
	}, vs.Reflection.Bindings)

	assert.Equal(t, "fs_main", fs.Reflection.EntryPoint)
	assert.Equal(t, vk.ShaderStageFragmentBit, fs.Reflection.Stage)
	assert.Empty(t, fs.Reflection.Inputs)
	assert.Empty(t, fs.Reflection.Bindings)

	assert.True(t, IsCombinable(stages))
}

func TestCompileReportsReachableBindingsOnly(t *testing.T) {
	stages, err := Compile(texturedSource)
	require.NoError(t, err)
	require.Len(t, stages, 1)

	assert.Empty(t, stages[0].Reflection.Inputs)
	assert.Equal(t, []vkgc.DescriptorBinding{
		{Name: "tint", Set: 0, Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1},
		{Name: "tex", Set: 1, Binding: 0, Type: vk.DescriptorTypeSampledImage, Count: 1},
		{Name: "samp", Set: 1, Binding: 1, Type: vk.DescriptorTypeSampler, Count: 1},
	}, stages[0].Reflection.Bindings)

	assert.False(t, IsCombinable(stages))
}

func TestCompilePushConstants(t *testing.T) {
	stages, err := Compile(pushConstantSource)
	require.NoError(t, err)
	require.Len(t, stages, 1)

	refl := stages[0].Reflection
	assert.Equal(t, []vkgc.InputVariable{
		{Name: "pos", Location: 0, Format: vk.FormatR32g32Sfloat},
	}, refl.Inputs)
	assert.Equal(t, []vkgc.PushConstantBlock{{Name: "pc", Size: 16}}, refl.PushConstants)
	assert.Empty(t, refl.Bindings)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target error
	}{
		{"parse", "fn main( {", ErrParse},
		{"lower", `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return missing;
}
`, ErrLower},
		{"no entry point", `
fn helper() -> f32 {
    return 1.0;
}
`, ErrNoEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.source)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestSelect(t *testing.T) {
	stages, err := Compile(triangleSource)
	require.NoError(t, err)

	picked, err := Select(stages, "fs_main")
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "fs_main", picked[0].Reflection.EntryPoint)

	_, err = Select(stages, "cs_main")
	assert.True(t, errors.Is(err, ErrEntryPoint))
}

func TestIsCombinable(t *testing.T) {
	stage := func(types ...vk.DescriptorType) vkgc.ShaderStage {
		var s vkgc.ShaderStage
		for i, typ := range types {
			s.Reflection.Bindings = append(s.Reflection.Bindings, vkgc.DescriptorBinding{Binding: uint32(i), Type: typ, Count: 1})
		}
		return s
	}
	assert.True(t, IsCombinable(nil))
	assert.True(t, IsCombinable([]vkgc.ShaderStage{stage(vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeCombinedImageSampler)}))
	assert.False(t, IsCombinable([]vkgc.ShaderStage{stage(vk.DescriptorTypeUniformBuffer), stage(vk.DescriptorTypeStorageBuffer)}))
}

func TestVertexFormat(t *testing.T) {
	f32 := ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
	tests := []struct {
		in   ir.TypeInner
		want vk.Format
		ok   bool
	}{
		{f32, vk.FormatR32Sfloat, true},
		{ir.VectorType{Size: ir.Vec4, Scalar: f32}, vk.FormatR32g32b32a32Sfloat, true},
		{ir.VectorType{Size: ir.Vec2, Scalar: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}}, vk.FormatR32g32Uint, true},
		{ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarType{Kind: ir.ScalarSint, Width: 4}}, vk.FormatR32g32b32Sint, true},
		{ir.ScalarType{Kind: ir.ScalarBool, Width: 1}, vk.FormatUndefined, false},
		{ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, vk.FormatUndefined, false},
		{ir.MatrixType{Columns: ir.Vec4, Rows: ir.Vec4, Scalar: f32}, vk.FormatUndefined, false},
	}
	for _, tt := range tests {
		got, ok := vertexFormat(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}

func TestTypeSize(t *testing.T) {
	four := uint32(4)
	f32 := ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
	m := &ir.Module{Types: []ir.Type{
		{Inner: f32},
		{Inner: ir.VectorType{Size: ir.Vec3, Scalar: f32}},
		{Inner: ir.MatrixType{Columns: ir.Vec4, Rows: ir.Vec4, Scalar: f32}},
		{Inner: ir.MatrixType{Columns: ir.Vec3, Rows: ir.Vec3, Scalar: f32}},
		{Inner: ir.ArrayType{Base: 0, Size: ir.ArraySize{Constant: &four}, Stride: 16}},
		{Inner: ir.ArrayType{Base: 0}},
		{Inner: ir.StructType{Span: 80}},
	}}
	for h, want := range []uint32{4, 12, 64, 48, 64, 0, 80} {
		assert.Equal(t, want, typeSize(m, ir.TypeHandle(h)), "type %d", h)
	}
}

func TestDescriptorType(t *testing.T) {
	two := uint32(2)
	m := &ir.Module{Types: []ir.Type{
		{Inner: ir.SamplerType{}},
		{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled}},
		{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassDepth}},
		{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassStorage}},
		{Inner: ir.ArrayType{Base: 1, Size: ir.ArraySize{Constant: &two}}},
		{Inner: ir.StructType{Span: 16}},
	}}
	tests := []struct {
		global ir.GlobalVariable
		typ    vk.DescriptorType
		count  uint32
	}{
		{ir.GlobalVariable{Space: ir.SpaceHandle, Type: 0}, vk.DescriptorTypeSampler, 1},
		{ir.GlobalVariable{Space: ir.SpaceHandle, Type: 1}, vk.DescriptorTypeSampledImage, 1},
		{ir.GlobalVariable{Space: ir.SpaceHandle, Type: 2}, vk.DescriptorTypeSampledImage, 1},
		{ir.GlobalVariable{Space: ir.SpaceHandle, Type: 3}, vk.DescriptorTypeStorageImage, 1},
		{ir.GlobalVariable{Space: ir.SpaceHandle, Type: 4}, vk.DescriptorTypeSampledImage, 2},
		{ir.GlobalVariable{Space: ir.SpaceUniform, Type: 5}, vk.DescriptorTypeUniformBuffer, 1},
		{ir.GlobalVariable{Space: ir.SpaceStorage, Type: 5}, vk.DescriptorTypeStorageBuffer, 1},
	}
	for i, tt := range tests {
		typ, count := descriptorType(m, &tt.global)
		assert.Equal(t, tt.typ, typ, "case %d", i)
		assert.Equal(t, tt.count, count, "case %d", i)
	}
}

func TestReachableGlobalsFollowsCalls(t *testing.T) {
	m := &ir.Module{
		GlobalVariables: make([]ir.GlobalVariable, 3),
		Functions: []ir.Function{
			{
				Expressions: []ir.Expression{{Kind: ir.ExprGlobalVariable{Variable: 2}}},
				Body: []ir.Statement{{Kind: ir.StmtIf{
					Accept: ir.Block{{Kind: ir.StmtCall{Function: 1}}},
				}}},
			},
			{
				Expressions: []ir.Expression{{Kind: ir.ExprGlobalVariable{Variable: 0}}},
				Body:        []ir.Statement{{Kind: ir.StmtCall{Function: 0}}},
			},
			{
				Expressions: []ir.Expression{{Kind: ir.ExprGlobalVariable{Variable: 1}}},
			},
		},
	}
	assert.Equal(t, []ir.GlobalVariableHandle{0, 2}, reachableGlobals(m, 0))
	assert.Equal(t, []ir.GlobalVariableHandle{1}, reachableGlobals(m, 2))
}
