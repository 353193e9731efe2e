package vkgc

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	ErrUnknownFormat           = errors.New("unknown format")
	ErrUnsupportedLayout       = errors.New("image layout not supported")
	ErrUnsupportedUniformType  = errors.New("uniform type not supported")
	ErrBindingNotFound         = errors.New("no binding found")
	ErrBindingRedefinition     = errors.New("descriptor binding redefined with a different type or count")
	ErrTooManyDepthAttachments = errors.New("render pass supports at most one depth/stencil attachment")
	ErrNoMemoryType            = errors.New("failed to find suitable memory type")
	ErrZeroSize                = errors.New("buffer size must be greater than zero")
	ErrSizeMismatch            = errors.New("data size does not match buffer size")
	ErrUniformTypeMismatch     = errors.New("uniform type does not match the shader binding")
	ErrTransitionInRenderPass  = errors.New("image layout transition inside a render pass")
)

// vkCheck converts a native result into an error annotated with the failing operation.
func vkCheck(res vk.Result, op string) error {
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}
