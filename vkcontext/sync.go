package vkcontext

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// frameSync guards one in-flight frame. The fence starts signaled so the
// first wait on every slot returns immediately.
type frameSync struct {
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	fence          vk.Fence
}

func createSemaphore(d vk.Device) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sema vk.Semaphore
	err := vk.Error(vk.CreateSemaphore(d, &createInfo, nil, &sema))
	return sema, errors.Wrap(err, "create semaphore")
}

func createFence(d vk.Device, signaled bool) (vk.Fence, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	err := vk.Error(vk.CreateFence(d, &createInfo, nil, &fence))
	return fence, errors.Wrap(err, "create fence")
}

func createFrameSync(d vk.Device) (frameSync, error) {
	var (
		s   frameSync
		err error
	)
	if s.imageAvailable, err = createSemaphore(d); err != nil {
		return frameSync{}, err
	}
	if s.renderFinished, err = createSemaphore(d); err != nil {
		s.destroy(d)
		return frameSync{}, err
	}
	if s.fence, err = createFence(d, true); err != nil {
		s.destroy(d)
		return frameSync{}, err
	}
	return s, nil
}

func (s *frameSync) wait(d vk.Device) error {
	err := vk.Error(vk.WaitForFences(d, 1, []vk.Fence{s.fence}, vk.True, waitForever))
	return errors.Wrap(err, "wait for frame fence")
}

func (s *frameSync) reset(d vk.Device) error {
	return errors.Wrap(vk.Error(vk.ResetFences(d, 1, []vk.Fence{s.fence})), "reset frame fence")
}

func (s *frameSync) destroy(d vk.Device) {
	if s.fence != vk.NullFence {
		vk.DestroyFence(d, s.fence, nil)
	}
	if s.renderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(d, s.renderFinished, nil)
	}
	if s.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(d, s.imageAvailable, nil)
	}
	*s = frameSync{}
}
