package vkcontext

import (
	"github.com/cockroachdb/errors"
)

// Config selects how the instance, device and swapchain are created.
type Config struct {
	ApplicationName string `toml:"application_name"`
	// Validation enables the Khronos validation layer and routes its reports to the logger.
	Validation bool `toml:"validation"`
	// VSync false prefers mailbox presentation when the surface offers it.
	VSync bool `toml:"vsync"`
	// ImageCount is the desired swapchain image count, 0 picks one more than the minimum.
	ImageCount int `toml:"image_count"`
}

func DefaultConfig() Config {
	return Config{
		ApplicationName: "vkgc",
		VSync:           true,
	}
}

func (c Config) Validate() error {
	if c.ImageCount < 0 {
		return errors.Newf("image_count must not be negative, got %d", c.ImageCount)
	}
	return nil
}
