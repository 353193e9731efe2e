package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// UniformType is the kind of descriptor a UniformInfo binds.
type UniformType uint32

const (
	UniformTypeSampler UniformType = iota
	UniformTypeCombinedImageSampler
	UniformTypeSampledImage
	UniformTypeUniformBuffer

	uniformTypeCount
)

func (t UniformType) descriptorType() vk.DescriptorType {
	switch t {
	case UniformTypeSampler:
		return vk.DescriptorTypeSampler
	case UniformTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case UniformTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	}
	return vk.DescriptorTypeUniformBuffer
}

func uniformTypeOf(t vk.DescriptorType) (UniformType, bool) {
	switch t {
	case vk.DescriptorTypeSampler:
		return UniformTypeSampler, true
	case vk.DescriptorTypeCombinedImageSampler:
		return UniformTypeCombinedImageSampler, true
	case vk.DescriptorTypeSampledImage:
		return UniformTypeSampledImage, true
	case vk.DescriptorTypeUniformBuffer:
		return UniformTypeUniformBuffer, true
	}
	return 0, false
}

// layoutPoolKey counts every descriptor the set layout declares, written or not.
func layoutPoolKey(set *shaderSet) (descriptorPoolKey, error) {
	var key descriptorPoolKey
	for _, b := range set.bindings {
		t, ok := uniformTypeOf(b.DescriptorType)
		if !ok {
			return key, errors.Wrapf(ErrUnsupportedUniformType, "descriptor type %d at binding %d", b.DescriptorType, b.Binding)
		}
		key[t] += b.DescriptorCount
	}
	return key, nil
}

func (t UniformType) String() string {
	switch t {
	case UniformTypeSampler:
		return "sampler"
	case UniformTypeCombinedImageSampler:
		return "combined image sampler"
	case UniformTypeSampledImage:
		return "sampled image"
	case UniformTypeUniformBuffer:
		return "uniform buffer"
	}
	return "unknown"
}

// Texture pairs an image with the sampler it is read through.
type Texture struct {
	Image   ImageHandle
	Sampler SamplerHandle
}

// UniformInfo fills one binding of a set. Combined image samplers use
// Textures, viewed with ImageUsage, and uniform buffers use Buffers.
type UniformInfo struct {
	Type       UniformType
	Binding    uint32
	ImageUsage ImageUsage
	Textures   []Texture
	Buffers    []BufferHandle
}

type uniformSet struct {
	images    []ImageHandle
	views     []vk.ImageView
	poolKey   descriptorPoolKey
	poolIndex int
	shader    ShaderHandle
	set       uint32
	native    vk.DescriptorSet
}

// CreateUniformSet allocates a descriptor set for set of shader s and writes
// every uniform into it. Sampled images are moved to the layout they are read in.
// The pool is sized for every binding of the set, including ones left unwritten.
func (c *Controller) CreateUniformSet(s ShaderHandle, set uint32, uniforms []UniformInfo) (UniformSetHandle, error) {
	sh := &c.shaders[s]
	setPos := sh.findSet(set)
	if setPos < 0 {
		return 0, errors.Wrapf(ErrBindingNotFound, "shader %d has no set %d", s, set)
	}
	layoutSet := &sh.sets[setPos]

	us := uniformSet{shader: s, set: set}
	fail := func(err error) (UniformSetHandle, error) {
		for _, view := range us.views {
			c.driver.DestroyImageView(view)
		}
		return 0, errors.Wrapf(err, "create uniform set %d of shader %d", set, s)
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(uniforms))
	for _, u := range uniforms {
		binding := layoutSet.findBinding(u.Binding)
		if binding == nil {
			return fail(errors.Wrapf(ErrBindingNotFound, "binding %d", u.Binding))
		}
		if u.Type < uniformTypeCount && u.Type.descriptorType() != binding.DescriptorType {
			return fail(errors.Wrapf(ErrUniformTypeMismatch, "%s at binding %d, shader declares descriptor type %d",
				u.Type, u.Binding, binding.DescriptorType))
		}

		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstBinding:      binding.Binding,
			DstArrayElement: 0,
		}

		switch u.Type {
		case UniformTypeCombinedImageSampler:
			infos := make([]vk.DescriptorImageInfo, 0, len(u.Textures))
			for _, t := range u.Textures {
				img := &c.images[t.Image]
				layout := vk.ImageLayoutShaderReadOnlyOptimal
				if img.info.Usage.Has(ImageUsageDepthStencilReadOnly) {
					layout = vk.ImageLayoutDepthStencilReadOnlyOptimal
				}
				if err := c.imageShouldHaveLayout(img, layout); err != nil {
					return fail(err)
				}

				view, err := c.createImageView(img, u.ImageUsage)
				if err != nil {
					return fail(err)
				}
				us.views = append(us.views, view)
				us.images = append(us.images, t.Image)

				infos = append(infos, vk.DescriptorImageInfo{
					Sampler:     c.samplers[t.Sampler].native,
					ImageView:   view,
					ImageLayout: img.currentLayout,
				})
			}
			write.DescriptorType = vk.DescriptorTypeCombinedImageSampler
			write.DescriptorCount = uint32(len(infos))
			write.PImageInfo = infos

		case UniformTypeUniformBuffer:
			infos := make([]vk.DescriptorBufferInfo, 0, len(u.Buffers))
			for _, b := range u.Buffers {
				infos = append(infos, vk.DescriptorBufferInfo{
					Buffer: c.buffers[b].native,
					Offset: 0,
					Range:  vk.DeviceSize(vk.WholeSize),
				})
			}
			write.DescriptorType = vk.DescriptorTypeUniformBuffer
			write.DescriptorCount = uint32(len(infos))
			write.PBufferInfo = infos

		default:
			return fail(errors.Wrapf(ErrUnsupportedUniformType, "%s at binding %d", u.Type, u.Binding))
		}

		writes = append(writes, write)
	}

	key, err := layoutPoolKey(layoutSet)
	if err != nil {
		return fail(err)
	}
	us.poolKey = key

	poolIndex, err := c.allocateDescriptorPool(us.poolKey)
	if err != nil {
		return fail(err)
	}
	pool := c.descriptorPools[us.poolKey][poolIndex]

	native, err := c.driver.AllocateDescriptorSet(pool.native, sh.setLayouts[setPos])
	if err != nil {
		c.releaseDescriptorPool(us.poolKey, poolIndex)
		return fail(err)
	}
	us.poolIndex = poolIndex
	us.native = native

	for i := range writes {
		writes[i].DstSet = native
	}
	c.driver.UpdateDescriptorSets(writes)

	c.uniformSets = append(c.uniformSets, us)
	h := UniformSetHandle(len(c.uniformSets) - 1)
	c.log.Debug("created uniform set",
		slog.Int("handle", int(h)),
		slog.Int("shader", int(s)),
		slog.Int("set", int(set)),
		slog.Int("pool", poolIndex))
	return h, nil
}
