package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

type SamplerInfo struct {
	MagFilter               vk.Filter
	MinFilter               vk.Filter
	MipmapMode              vk.SamplerMipmapMode
	AddressModeU            vk.SamplerAddressMode
	AddressModeV            vk.SamplerAddressMode
	AddressModeW            vk.SamplerAddressMode
	MipLodBias              float32
	AnisotropyEnable        bool
	MaxAnisotropy           float32
	CompareEnable           bool
	CompareOp               vk.CompareOp
	MinLod                  float32
	MaxLod                  float32
	BorderColor             vk.BorderColor
	UnnormalizedCoordinates bool
}

type sampler struct {
	info   SamplerInfo
	native vk.Sampler
}

func (c *Controller) CreateSampler(info SamplerInfo) (SamplerHandle, error) {
	native, err := c.driver.CreateSampler(&vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               info.MagFilter,
		MinFilter:               info.MinFilter,
		MipmapMode:              info.MipmapMode,
		AddressModeU:            info.AddressModeU,
		AddressModeV:            info.AddressModeV,
		AddressModeW:            info.AddressModeW,
		MipLodBias:              info.MipLodBias,
		AnisotropyEnable:        boolToVk(info.AnisotropyEnable),
		MaxAnisotropy:           info.MaxAnisotropy,
		CompareEnable:           boolToVk(info.CompareEnable),
		CompareOp:               info.CompareOp,
		MinLod:                  info.MinLod,
		MaxLod:                  info.MaxLod,
		BorderColor:             info.BorderColor,
		UnnormalizedCoordinates: boolToVk(info.UnnormalizedCoordinates),
	})
	if err != nil {
		return 0, errors.Wrap(err, "create sampler")
	}

	c.samplers = append(c.samplers, sampler{info: info, native: native})
	h := SamplerHandle(len(c.samplers) - 1)
	c.log.Debug("created sampler", slog.Int("handle", int(h)))
	return h, nil
}
