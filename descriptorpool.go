package vkgc

import (
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// descriptorPoolKey counts the descriptors of each UniformType one set needs.
type descriptorPoolKey [uniformTypeCount]uint32

type descriptorPool struct {
	native vk.DescriptorPool
	usage  uint32
}

// allocateDescriptorPool returns the index of a pool under key with room for
// one more set, creating a pool when all of them are full.
func (c *Controller) allocateDescriptorPool(key descriptorPoolKey) (int, error) {
	maxSets := c.cfg.MaxSetsPerDescriptorPool
	pools := c.descriptorPools[key]
	for i := range pools {
		if pools[i].usage < maxSets {
			pools[i].usage++
			return i, nil
		}
	}

	var sizes []vk.DescriptorPoolSize
	for t, count := range key {
		if count == 0 {
			continue
		}
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            UniformType(t).descriptorType(),
			DescriptorCount: count * maxSets,
		})
	}

	native, err := c.driver.CreateDescriptorPool(&vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	})
	if err != nil {
		return 0, err
	}

	c.descriptorPools[key] = append(pools, descriptorPool{native: native, usage: 1})
	c.log.Debug("created descriptor pool",
		slog.Int("pools", len(c.descriptorPools[key])),
		slog.Uint64("max_sets", uint64(maxSets)))
	return len(pools), nil
}

// releaseDescriptorPool undoes a reservation made for a set that could not be allocated.
func (c *Controller) releaseDescriptorPool(key descriptorPoolKey, index int) {
	c.descriptorPools[key][index].usage--
}
