package vkgc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestDecodeImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(2, 1, color.NRGBA{B: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	data, w, h, err := DecodeImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), w)
	assert.Equal(t, uint32(2), h)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, data.Format)
	require.Len(t, data.Data, 3*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, data.Data[0:4])
	assert.Equal(t, []byte{0, 0, 255, 255}, data.Data[20:24])
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, _, _, err := DecodeImage(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestSliceBytes(t *testing.T) {
	assert.Nil(t, SliceBytes([]float32(nil)))
	b := SliceBytes([]uint32{0x04030201})
	assert.Equal(t, []byte{1, 2, 3, 4}, b)
	assert.Len(t, IndexSliceUint16{1, 2, 3}.Bytes(), 6)
}
