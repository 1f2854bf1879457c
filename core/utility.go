package core

import (
	"image"
	"image/draw"
	"unsafe"
)

// SliceUint32 reinterprets SPIR-V bytes as the uint32 words the shader
// module constructor expects. The backing array is shared, not copied.
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// Vulkan takes C strings, append the terminator Go strings lack.
func safeStrings(list []string) []string {
	safe := make([]string, len(list))
	for idx, s := range list {
		safe[idx] = s + "\x00"
	}
	return safe
}

// GetPixels redraws img on an RGBA canvas and returns the raw pixels.
// A row pitch wider than the natural 4*width reallocates the canvas so
// rows land where a linear tiling copy expects them.
func GetPixels(img image.Image, rowPitch int) ([]uint8, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	if rowPitch > canvas.Stride {
		canvas.Pix = make([]uint8, rowPitch*bounds.Dy())
		canvas.Stride = rowPitch
	}
	draw.Draw(canvas, canvas.Bounds(), img, image.Point{}, draw.Src)
	return canvas.Pix, nil
}
