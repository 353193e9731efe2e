// Package wgslstage compiles WGSL into vkgc shader stages: SPIR-V code plus
// the reflection CreateShader needs, read from the naga IR.
package wgslstage

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"

	"github.com/koala-engine/vkgc"
)

var (
	ErrParse      = errors.New("wgsl parse failed")
	ErrLower      = errors.New("wgsl lowering failed")
	ErrValidate   = errors.New("wgsl validation failed")
	ErrGenerate   = errors.New("spir-v generation failed")
	ErrNoEntry    = errors.New("no entry points")
	ErrInputType  = errors.New("unsupported vertex input type")
	ErrEntryPoint = errors.New("entry point not found")
)

type options struct {
	validate bool
	debug    bool
	version  spirv.Version
}

type Option func(*options)

// WithValidation runs the naga IR validator before generating code.
func WithValidation() Option {
	return func(o *options) {
		o.validate = true
	}
}

// WithDebugInfo keeps names and line information in the SPIR-V.
func WithDebugInfo() Option {
	return func(o *options) {
		o.debug = true
	}
}

func WithSPIRVVersion(v spirv.Version) Option {
	return func(o *options) {
		o.version = v
	}
}

// Compile returns one stage per entry point of source, in declaration order.
// All stages share the same SPIR-V module.
func Compile(source string, opts ...Option) ([]vkgc.ShaderStage, error) {
	o := options{version: spirv.Version1_3}
	for _, opt := range opts {
		opt(&o)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse"), ErrParse)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "lower"), ErrLower)
	}
	if len(module.EntryPoints) == 0 {
		return nil, ErrNoEntry
	}
	if o.validate {
		issues, err := naga.Validate(module)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "validate"), ErrValidate)
		}
		if len(issues) > 0 {
			return nil, errors.Wrapf(ErrValidate, "%s (%d issues)", issues[0].Error(), len(issues))
		}
	}
	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: o.version, Debug: o.debug})
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "generate"), ErrGenerate)
	}

	stages := make([]vkgc.ShaderStage, 0, len(module.EntryPoints))
	for i := range module.EntryPoints {
		refl, err := reflect(module, &module.EntryPoints[i])
		if err != nil {
			return nil, errors.Wrapf(err, "entry point %s", module.EntryPoints[i].Name)
		}
		stages = append(stages, vkgc.ShaderStage{Code: code, Reflection: refl})
	}
	return stages, nil
}

// Select picks stages by entry point name, for sources that declare more
// entry points than one pipeline uses.
func Select(stages []vkgc.ShaderStage, names ...string) ([]vkgc.ShaderStage, error) {
	out := make([]vkgc.ShaderStage, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(stages, func(s vkgc.ShaderStage) bool {
			return s.Reflection.EntryPoint == name
		})
		if i < 0 {
			return nil, errors.Wrapf(ErrEntryPoint, "%q", name)
		}
		out = append(out, stages[i])
	}
	return out, nil
}

// IsCombinable reports whether every binding of stages can be filled by
// vkgc.Controller.CreateUniformSet.
func IsCombinable(stages []vkgc.ShaderStage) bool {
	for _, s := range stages {
		for _, b := range s.Reflection.Bindings {
			switch b.Type {
			case vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeCombinedImageSampler:
			default:
				return false
			}
		}
	}
	return true
}
