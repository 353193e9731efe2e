package vkgc

import (
	"image"
	"image/draw"
	"io"

	// Decoders registered with image.Decode
	_ "image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a png, jpeg, bmp, tiff or webp image into tightly
// packed RGBA8 pixels ready for UpdateImage.
func DecodeImage(r io.Reader) (ImageDataInfo, uint32, uint32, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return ImageDataInfo{}, 0, 0, errors.Wrap(err, "decode image")
	}

	b := src.Bounds()
	m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), src, b.Min, draw.Src)

	return ImageDataInfo{
		Format: vk.FormatR8g8b8a8Unorm,
		Data:   m.Pix,
	}, uint32(b.Dx()), uint32(b.Dy()), nil
}
